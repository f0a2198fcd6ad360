// Package assets validates image uploads and stores them in an object
// storage bucket.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// MaxUploadSize is the largest accepted upload in bytes (5MB).
const MaxUploadSize = 5 << 20

var (
	// ErrBucketNotFound is returned when the destination bucket does not exist.
	ErrBucketNotFound = errors.New("assets: bucket not found")
	// ErrObjectExists is returned when an object with the same path already exists.
	ErrObjectExists = errors.New("assets: object already exists")
)

// ValidationError describes an upload rejected before any storage write.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// allowedTypes maps accepted content types to the extension used when the
// original filename has none.
var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// decodedFormats are the image.DecodeConfig format names we accept.
var decodedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
	"gif":  true,
}

// Asset is the metadata of a stored upload.
type Asset struct {
	Path         string    `json:"path"`
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	OriginalName string    `json:"original_name"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// BucketInfo describes a storage bucket.
type BucketInfo struct {
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

// Bucket is the object storage backend.
type Bucket interface {
	// Name returns the bucket name.
	Name() string
	// Put stores body at objectPath without overwriting and returns the stored path.
	Put(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) (string, error)
	// PublicURL returns the URL at which objectPath is publicly readable.
	PublicURL(objectPath string) string
	// Stat reports whether the bucket exists and whether it is public.
	Stat(ctx context.Context) (BucketInfo, error)
}

// Catalog persists asset metadata.
type Catalog interface {
	SaveAsset(ctx context.Context, a Asset) error
}

// Uploader validates uploads and writes them to a Bucket.
type Uploader struct {
	bucket  Bucket
	catalog Catalog
	maxSize int64
	now     func() time.Time
}

// NewUploader returns an Uploader writing to bucket. catalog may be nil.
func NewUploader(bucket Bucket, catalog Catalog) *Uploader {
	return &Uploader{
		bucket:  bucket,
		catalog: catalog,
		maxSize: MaxUploadSize,
		now:     time.Now,
	}
}

// Bucket returns the destination bucket.
func (u *Uploader) Bucket() Bucket {
	return u.bucket
}

// Upload validates the file and stores it under a generated, collision
// resistant name. size is the size declared by the client.
func (u *Uploader) Upload(ctx context.Context, originalName, contentType string, size int64, r io.Reader) (Asset, error) {
	ct := NormalizeContentType(contentType)
	if _, ok := allowedTypes[ct]; !ok {
		return Asset{}, &ValidationError{Msg: "Invalid file type. Only images are allowed."}
	}
	if size > u.maxSize {
		return Asset{}, u.tooLarge()
	}

	// Read one byte past the limit so a lying Content-Length is still caught.
	data, err := io.ReadAll(io.LimitReader(r, u.maxSize+1))
	if err != nil {
		return Asset{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > u.maxSize {
		return Asset{}, u.tooLarge()
	}
	if len(data) == 0 {
		return Asset{}, &ValidationError{Msg: "No file provided"}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || !decodedFormats[format] {
		return Asset{}, &ValidationError{Msg: "Invalid image file"}
	}

	uploadedAt := u.now().UTC()
	name := ObjectName(uploadedAt, originalName, ct)
	stored, err := u.bucket.Put(ctx, name, ct, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Asset{}, err
	}

	a := Asset{
		Path:         stored,
		URL:          u.bucket.PublicURL(stored),
		ContentType:  ct,
		Size:         int64(len(data)),
		Width:        cfg.Width,
		Height:       cfg.Height,
		OriginalName: originalName,
		UploadedAt:   uploadedAt,
	}
	if u.catalog != nil {
		if err := u.catalog.SaveAsset(ctx, a); err != nil {
			return Asset{}, err
		}
	}
	return a, nil
}

func (u *Uploader) tooLarge() error {
	return &ValidationError{Msg: fmt.Sprintf("File size too large. Maximum size is %dMB.", u.maxSize>>20)}
}

// NormalizeContentType lowercases a content type and drops any parameters.
func NormalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// ObjectName builds "<unix-millis>-<token>.<ext>" for an upload.
func ObjectName(t time.Time, originalName, contentType string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("%d-%s.%s", t.UnixMilli(), token, extension(originalName, contentType))
}

func extension(originalName, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	ext = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, ext)
	if ext != "" {
		return ext
	}
	if fallback, ok := allowedTypes[NormalizeContentType(contentType)]; ok {
		return fallback
	}
	return "bin"
}
