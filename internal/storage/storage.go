package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/producthunt/apiserver/config"
)

const (
	BackendMinio  = "minio"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

var (
	// ErrUnsupportedType is returned for uploads that are not a known image type.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrObjectNotFound is returned by every backend for unknown keys.
	ErrObjectNotFound = errors.New("object not found")
)

// Image keys are never reused, so stored objects can be cached indefinitely.
const imageCacheControl = "public, max-age=31536000, immutable"

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage wraps an ObjectStorage backend with a stable API and resolves the
// public URL of stored product images.
type Storage struct {
	backend       ObjectStorage
	publicBaseURL string
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage, publicBaseURL string) *Storage {
	return &Storage{backend: backend, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Open selects a backend from cfg. An empty backend disables image uploads and
// returns a nil *Storage without error.
func Open(ctx context.Context, cfg config.ObjectStorageConfig) (*Storage, error) {
	var backend ObjectStorage
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case BackendMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		backend = client
	case BackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		backend = client
	case BackendMemory:
		backend = NewMemoryStorage("product-images")
	default:
		return nil, fmt.Errorf("unknown object storage backend %q", cfg.Backend)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend, cfg.PublicBaseURL), nil
}

// ImageKey names the object for a product image. A fresh suffix per upload
// keeps cached copies of the previous image from being served.
func ImageKey(productID, contentType string) (string, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := imageExtensions[mediaType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	return path.Join("products", productID, uuid.NewString()+ext), nil
}

// URL returns the address clients use to fetch key. Without a public base URL
// the key is resolved against the bucket name.
func (s *Storage) URL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.publicBaseURL == "" {
		return "/" + s.backend.Bucket() + "/" + escaped
	}
	return s.publicBaseURL + "/" + escaped
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an object to the configured bucket.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Get opens a reader for an object in the configured bucket.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes an object from the configured bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
