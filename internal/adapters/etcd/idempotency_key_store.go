package etcd

import (
	"context"
	"sync"
	"time"

	"github.com/modelport/modelport/internal/data/models"
)

const defaultIdempotencyTTL = 24 * time.Hour

type memoryIdempotencyEntry struct {
	record    models.IdempotencyRecord
	expiresAt time.Time
}

// MemoryIdempotencyKeyStore is the in-process twin of the etcd-backed store.
// Records expire after the same TTL the etcd variant leases them for, so a
// replayed key behaves identically under both backends.
type MemoryIdempotencyKeyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryIdempotencyEntry
}

func NewMemoryIdempotencyKeyStore(ttl time.Duration) *MemoryIdempotencyKeyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &MemoryIdempotencyKeyStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryIdempotencyEntry),
	}
}

func (s *MemoryIdempotencyKeyStore) Get(_ context.Context, scope, key string) (*models.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := scope + "::" + key
	entry, ok := s.entries[k]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, k)
		return nil, nil
	}
	record := entry.record
	return &record, nil
}

func (s *MemoryIdempotencyKeyStore) Put(_ context.Context, scope, key string, record models.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[scope+"::"+key] = memoryIdempotencyEntry{
		record:    record,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}
