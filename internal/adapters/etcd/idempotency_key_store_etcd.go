package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/modelport/modelport/internal/data/models"
)

// EtcdIdempotencyKeyStore keeps replay records under
// {statePath}/idempotency/{scope}/{key}, each bound to a TTL lease so etcd
// reclaims them without a sweeper.
type EtcdIdempotencyKeyStore struct {
	client   *clientv3.Client
	basePath string
	ttl      time.Duration
}

func NewEtcdIdempotencyKeyStore(client *clientv3.Client, appName string, ttl time.Duration) *EtcdIdempotencyKeyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &EtcdIdempotencyKeyStore{
		client:   client,
		basePath: statePath(appName) + "/idempotency",
		ttl:      ttl,
	}
}

func (s *EtcdIdempotencyKeyStore) recordKey(scope, key string) string {
	return s.basePath + "/" + strings.TrimSpace(scope) + "/" + strings.TrimSpace(key)
}

func (s *EtcdIdempotencyKeyStore) Get(ctx context.Context, scope, key string) (*models.IdempotencyRecord, error) {
	resp, err := s.client.Get(ctx, s.recordKey(scope, key))
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}

	var record models.IdempotencyRecord
	if err := json.Unmarshal(resp.Kvs[0].Value, &record); err != nil {
		return nil, fmt.Errorf("invalid idempotency record at %s: %w", s.recordKey(scope, key), err)
	}
	log.Info().Str("scope", scope).Str("idempotency_key", key).Msg("idempotency replay hit")
	return &record, nil
}

func (s *EtcdIdempotencyKeyStore) Put(ctx context.Context, scope, key string, record models.IdempotencyRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}

	lease, err := s.client.Grant(ctx, int64(s.ttl/time.Second))
	if err != nil {
		return fmt.Errorf("failed to create idempotency ttl lease: %w", err)
	}
	if _, err := s.client.Put(ctx, s.recordKey(scope, key), string(raw), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}
	log.Info().
		Str("scope", scope).
		Str("idempotency_key", key).
		Dur("ttl", s.ttl).
		Msg("idempotency record stored with ttl lease")
	return nil
}
