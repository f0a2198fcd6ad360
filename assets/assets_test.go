package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBucket struct {
	puts    []string
	data    map[string][]byte
	failPut error
}

func newRecordingBucket() *recordingBucket {
	return &recordingBucket{data: map[string][]byte{}}
}

func (b *recordingBucket) Name() string { return "blog-images" }

func (b *recordingBucket) Put(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) (string, error) {
	b.puts = append(b.puts, objectPath)
	if b.failPut != nil {
		return "", b.failPut
	}
	if _, ok := b.data[objectPath]; ok {
		return "", ErrObjectExists
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.data[objectPath] = raw
	return objectPath, nil
}

func (b *recordingBucket) PublicURL(objectPath string) string {
	return "https://cdn.example.com/" + objectPath
}

func (b *recordingBucket) Stat(ctx context.Context) (BucketInfo, error) {
	return BucketInfo{Name: b.Name(), Public: true}, nil
}

type recordingCatalog struct {
	saved []Asset
}

func (c *recordingCatalog) SaveAsset(ctx context.Context, a Asset) error {
	c.saved = append(c.saved, a)
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadStoresValidImage(t *testing.T) {
	bucket := newRecordingBucket()
	catalog := &recordingCatalog{}
	u := NewUploader(bucket, catalog)
	u.now = func() time.Time { return time.UnixMilli(1700000000000) }
	data := pngBytes(t, 4, 3)

	a, err := u.Upload(context.Background(), "photo.PNG", "image/png", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^1700000000000-[0-9a-f]{13}\.png$`), a.Path)
	assert.Equal(t, "https://cdn.example.com/"+a.Path, a.URL)
	assert.Equal(t, 4, a.Width)
	assert.Equal(t, 3, a.Height)
	assert.Equal(t, int64(len(data)), a.Size)
	assert.Equal(t, data, bucket.data[a.Path])
	require.Len(t, catalog.saved, 1)
	assert.Equal(t, a, catalog.saved[0])
}

func TestUploadRejectsNonImageType(t *testing.T) {
	bucket := newRecordingBucket()
	u := NewUploader(bucket, nil)

	_, err := u.Upload(context.Background(), "tool.exe", "application/x-msdownload", 100, strings.NewReader("MZ"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid file type. Only images are allowed.", verr.Msg)
	assert.Empty(t, bucket.puts)
}

func TestUploadRejectsDeclaredOversize(t *testing.T) {
	bucket := newRecordingBucket()
	u := NewUploader(bucket, nil)

	_, err := u.Upload(context.Background(), "big.png", "image/png", 10<<20, strings.NewReader(""))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "File size too large. Maximum size is 5MB.", verr.Msg)
	assert.Empty(t, bucket.puts)
}

func TestUploadRejectsUnderstatedSize(t *testing.T) {
	bucket := newRecordingBucket()
	u := NewUploader(bucket, nil)
	body := bytes.Repeat([]byte{0}, MaxUploadSize+10)

	_, err := u.Upload(context.Background(), "big.png", "image/png", 100, bytes.NewReader(body))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Msg, "File size too large")
	assert.Empty(t, bucket.puts)
}

func TestUploadRejectsCorruptImage(t *testing.T) {
	bucket := newRecordingBucket()
	u := NewUploader(bucket, nil)

	_, err := u.Upload(context.Background(), "fake.png", "image/png", 12, strings.NewReader("not an image"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid image file", verr.Msg)
	assert.Empty(t, bucket.puts)
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	u := NewUploader(newRecordingBucket(), nil)

	_, err := u.Upload(context.Background(), "empty.png", "image/png", 0, strings.NewReader(""))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "No file provided", verr.Msg)
}

func TestUploadPropagatesMissingBucket(t *testing.T) {
	bucket := newRecordingBucket()
	bucket.failPut = ErrBucketNotFound
	u := NewUploader(bucket, nil)
	data := pngBytes(t, 1, 1)

	_, err := u.Upload(context.Background(), "a.png", "image/png", int64(len(data)), bytes.NewReader(data))
	assert.True(t, errors.Is(err, ErrBucketNotFound))
}

func TestObjectNamesAreDistinct(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		name := ObjectName(at, "same.jpg", "image/jpeg")
		require.False(t, seen[name], "duplicate object name %s", name)
		seen[name] = true
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name, contentType, want string
	}{
		{"photo.JPG", "image/jpeg", "jpg"},
		{"noext", "image/webp", "webp"},
		{"noext", "text/plain", "bin"},
		{"weird.p-n g", "image/png", "png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extension(tt.name, tt.contentType), tt.name)
	}
}

func TestNormalizeContentType(t *testing.T) {
	assert.Equal(t, "image/png", NormalizeContentType(" Image/PNG; charset=binary"))
	assert.Equal(t, "", NormalizeContentType(""))
}
