package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalBucket stores objects in a directory that the web server exposes
// under a URL prefix. It is used when no hosted storage is configured.
type LocalBucket struct {
	dir       string
	urlPrefix string
}

// NewLocalBucket returns a bucket rooted at dir whose objects are served at urlPrefix.
func NewLocalBucket(dir, urlPrefix string) *LocalBucket {
	return &LocalBucket{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

// Name returns the base name of the bucket directory.
func (b *LocalBucket) Name() string {
	return filepath.Base(b.dir)
}

// Dir returns the directory backing the bucket.
func (b *LocalBucket) Dir() string {
	return b.dir
}

// Put writes body to objectPath, failing with ErrObjectExists rather than
// overwriting.
func (b *LocalBucket) Put(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) (string, error) {
	clean := path.Clean("/" + objectPath)[1:]
	if clean == "" || clean == "." {
		return "", fmt.Errorf("local bucket: invalid object path %q", objectPath)
	}
	dst := filepath.Join(b.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("%w: %s", ErrObjectExists, clean)
	}
	if err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return clean, nil
}

// PublicURL returns the served URL path of objectPath.
func (b *LocalBucket) PublicURL(objectPath string) string {
	return b.urlPrefix + "/" + objectPath
}

// Stat reports ErrBucketNotFound when the directory is missing.
func (b *LocalBucket) Stat(ctx context.Context) (BucketInfo, error) {
	info, err := os.Stat(b.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return BucketInfo{}, fmt.Errorf("%w: %s", ErrBucketNotFound, b.dir)
	}
	if err != nil {
		return BucketInfo{}, err
	}
	if !info.IsDir() {
		return BucketInfo{}, fmt.Errorf("local bucket: %s is not a directory", b.dir)
	}
	return BucketInfo{Name: b.Name(), Public: true}, nil
}
