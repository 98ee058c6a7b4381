package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore is the in-process ObjectStore used by tests and by
// USE_MOCK_ADAPTERS deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	bucketID string
	objects  map[string][]byte
}

func NewMemoryStore(bucketID string) *MemoryStore {
	if bucketID == "" {
		bucketID = "modelport-local"
	}
	return &MemoryStore{
		bucketID: bucketID,
		objects:  make(map[string][]byte),
	}
}

func (m *MemoryStore) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[key] = raw
	m.mu.Unlock()
	return URI("mem", m.bucketID, key), nil
}

func (m *MemoryStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	raw, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("object %s not found in bucket %s", key, m.bucketID)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("object %s not found in bucket %s", key, m.bucketID)
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("object %s not found in bucket %s", key, m.bucketID)
	}
	return URI("mem", m.bucketID, key), nil
}

// BucketName returns the bucket name.
func (m *MemoryStore) BucketName() string {
	return m.bucketID
}
