package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStorage keeps objects in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memoryObject
}

func NewMemoryStorage(bucket string) *MemoryStorage {
	return &MemoryStorage{bucket: bucket, objects: make(map[string]memoryObject)}
}

func (m *MemoryStorage) EnsureBucket(context.Context) error {
	return nil
}

func (m *MemoryStorage) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	return nil
}

func (m *MemoryStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// ContentType returns the stored content type of key.
func (m *MemoryStorage) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}

func (m *MemoryStorage) Bucket() string {
	return m.bucket
}
