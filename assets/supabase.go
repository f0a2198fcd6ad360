package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SupabaseBucket stores objects through the Supabase Storage REST API.
type SupabaseBucket struct {
	baseURL    string
	serviceKey string
	bucket     string
	client     *http.Client
}

// NewSupabaseBucket returns a bucket client for the project at baseURL,
// authenticated with the service role key. A nil client uses a client with a
// 30 second timeout.
func NewSupabaseBucket(baseURL, serviceKey, bucket string, client *http.Client) *SupabaseBucket {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SupabaseBucket{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		client:     client,
	}
}

// Name returns the bucket name.
func (b *SupabaseBucket) Name() string {
	return b.bucket
}

// storageError is the error body returned by Supabase Storage.
type storageError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func (e storageError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// Put uploads body to objectPath. Existing objects are never overwritten.
func (b *SupabaseBucket) Put(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) (string, error) {
	endpoint := b.baseURL + "/storage/v1/object/" + url.PathEscape(b.bucket) + "/" + escapePath(objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("storage: build request: %w", err)
	}
	b.authorize(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age=3600")
	req.Header.Set("x-upsert", "false")
	if size >= 0 {
		req.ContentLength = size
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return objectPath, nil
	}
	return "", b.decodeError(resp)
}

// PublicURL returns the public object URL. The bucket must be public for it to resolve.
func (b *SupabaseBucket) PublicURL(objectPath string) string {
	return b.baseURL + "/storage/v1/object/public/" + url.PathEscape(b.bucket) + "/" + escapePath(objectPath)
}

// Stat fetches the bucket's metadata.
func (b *SupabaseBucket) Stat(ctx context.Context) (BucketInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/storage/v1/bucket/"+url.PathEscape(b.bucket), nil)
	if err != nil {
		return BucketInfo{}, fmt.Errorf("storage: build request: %w", err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return BucketInfo{}, fmt.Errorf("storage: get bucket: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return BucketInfo{}, b.decodeError(resp)
	}
	var info BucketInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return BucketInfo{}, fmt.Errorf("storage: decode bucket: %w", err)
	}
	return info, nil
}

// ListBuckets returns every bucket in the project.
func (b *SupabaseBucket) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/storage/v1/bucket", nil)
	if err != nil {
		return nil, fmt.Errorf("storage: build request: %w", err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: list buckets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, b.decodeError(resp)
	}
	var buckets []BucketInfo
	if err := json.NewDecoder(resp.Body).Decode(&buckets); err != nil {
		return nil, fmt.Errorf("storage: decode buckets: %w", err)
	}
	return buckets, nil
}

func (b *SupabaseBucket) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+b.serviceKey)
	req.Header.Set("apikey", b.serviceKey)
}

// decodeError maps a failed response to a sentinel where one applies.
// Storage reports a missing bucket either as HTTP 404 or as a 400 whose
// body carries statusCode "404" and a "Bucket not found" message.
func (b *SupabaseBucket) decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var se storageError
	_ = json.Unmarshal(raw, &se)
	msg := se.text()
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = resp.Status
	}

	code := resp.StatusCode
	if n, err := strconv.Atoi(se.StatusCode); err == nil {
		code = n
	}
	lower := strings.ToLower(msg)
	switch {
	case code == http.StatusConflict || strings.Contains(lower, "duplicate") || strings.Contains(lower, "already exists"):
		return fmt.Errorf("%w: %s", ErrObjectExists, msg)
	case code == http.StatusNotFound || strings.Contains(lower, "not found") || strings.Contains(msg, "Bucket"):
		return fmt.Errorf("%w: %s", ErrBucketNotFound, msg)
	}
	return fmt.Errorf("storage: %s", msg)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
