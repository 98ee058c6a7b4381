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
	mperrors "github.com/modelport/modelport/internal/errors"
	mptypes "github.com/modelport/modelport/internal/types"
)

// statePath is the etcd prefix all modelport state lives under, namespaced
// by the service name so shared clusters don't collide.
func statePath(appName string) string {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		appName = "modelport"
	}
	return "/config/" + appName
}

// EtcdEndpointStateStore keeps endpoint records under
// {statePath}/endpoints/{env}/{name}. Every state change goes through a
// transaction guarded on the record's mod-revision and value, so two control
// planes racing on the same endpoint cannot both win.
type EtcdEndpointStateStore struct {
	client   *clientv3.Client
	basePath string
}

func NewEtcdEndpointStateStore(client *clientv3.Client, appName string) *EtcdEndpointStateStore {
	return &EtcdEndpointStateStore{
		client:   client,
		basePath: statePath(appName) + "/endpoints",
	}
}

func (s *EtcdEndpointStateStore) envPrefix(env string) string {
	return s.basePath + "/" + string(mptypes.NormalizePoolEnv(env))
}

func (s *EtcdEndpointStateStore) recordKey(env, name string) string {
	return s.envPrefix(env) + "/" + name
}

func (s *EtcdEndpointStateStore) List(ctx context.Context, env string, filter models.EndpointFilter) ([]models.EndpointRecord, error) {
	if !mptypes.IsSupportedPoolEnv(env) {
		return nil, mperrors.ErrUnsupportedEnv
	}
	resp, err := s.client.Get(ctx, s.envPrefix(env)+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	result := make([]models.EndpointRecord, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var item models.EndpointRecord
		if err := json.Unmarshal(kv.Value, &item); err != nil {
			return nil, fmt.Errorf("invalid endpoint record at %s: %w", string(kv.Key), err)
		}
		if filter.State != "" && filter.State != item.State {
			continue
		}
		if filter.InstanceType != "" && filter.InstanceType != item.Descriptor.InstanceType {
			continue
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *EtcdEndpointStateStore) Get(ctx context.Context, env, name string) (models.EndpointRecord, error) {
	if !mptypes.IsSupportedPoolEnv(env) {
		return models.EndpointRecord{}, mperrors.ErrUnsupportedEnv
	}
	resp, err := s.client.Get(ctx, s.recordKey(env, name))
	if err != nil {
		return models.EndpointRecord{}, err
	}
	if len(resp.Kvs) == 0 {
		return models.EndpointRecord{}, mperrors.ErrNotFound
	}
	var item models.EndpointRecord
	if err := json.Unmarshal(resp.Kvs[0].Value, &item); err != nil {
		return models.EndpointRecord{}, err
	}
	return item, nil
}

func (s *EtcdEndpointStateStore) Create(ctx context.Context, env string, record models.EndpointRecord) (models.EndpointRecord, error) {
	if !mptypes.IsSupportedPoolEnv(env) {
		return models.EndpointRecord{}, mperrors.ErrUnsupportedEnv
	}
	key := s.recordKey(env, record.Name)

	now := time.Now().UTC()
	record.CreatedAt = now
	record.LastUpdatedAt = now
	record.Version = 1
	raw, err := json.Marshal(record)
	if err != nil {
		return models.EndpointRecord{}, err
	}

	// Create-if-absent: the key must not exist yet (CreateRevision == 0).
	resp, err := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(raw))).
		Commit()
	if err != nil {
		return models.EndpointRecord{}, err
	}
	if !resp.Succeeded {
		return models.EndpointRecord{}, mperrors.ErrAlreadyExists
	}
	log.Info().
		Str("env", env).
		Str("endpoint", record.Name).
		Str("state", string(record.State)).
		Msg("endpoint record created in etcd")
	return record, nil
}

func (s *EtcdEndpointStateStore) Transition(ctx context.Context, env, name string, to mptypes.EndpointState, mutate func(*models.EndpointRecord)) (models.EndpointRecord, error) {
	if !mptypes.IsSupportedPoolEnv(env) {
		return models.EndpointRecord{}, mperrors.ErrUnsupportedEnv
	}
	key := s.recordKey(env, name)

	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return models.EndpointRecord{}, err
	}
	if len(resp.Kvs) == 0 {
		return models.EndpointRecord{}, mperrors.ErrNotFound
	}

	kv := resp.Kvs[0]
	var current models.EndpointRecord
	if err := json.Unmarshal(kv.Value, &current); err != nil {
		return models.EndpointRecord{}, err
	}
	if !validTransition(current.State, to) {
		return current, mperrors.ErrInvalidState
	}

	updated := current
	updated.State = to
	if mutate != nil {
		mutate(&updated)
	}
	updated.Version = current.Version + 1
	updated.LastUpdatedAt = time.Now().UTC()

	updatedRaw, err := json.Marshal(updated)
	if err != nil {
		return models.EndpointRecord{}, err
	}

	// The write only lands if the record is still exactly what we read,
	// guarded on both mod-revision and value.
	txn, err := s.client.Txn(ctx).
		If(
			clientv3.Compare(clientv3.ModRevision(key), "=", kv.ModRevision),
			clientv3.Compare(clientv3.Value(key), "=", string(kv.Value)),
		).
		Then(clientv3.OpPut(key, string(updatedRaw))).
		Commit()
	if err != nil {
		return models.EndpointRecord{}, err
	}
	if !txn.Succeeded {
		log.Info().
			Str("env", env).
			Str("endpoint", name).
			Str("to", string(to)).
			Msg("endpoint transition lost a concurrent update")
		return current, mperrors.ErrCASConflict
	}
	log.Info().
		Str("env", env).
		Str("endpoint", name).
		Str("state_before", string(current.State)).
		Str("state_after", string(updated.State)).
		Int64("version_after", updated.Version).
		Msg("endpoint transition applied")
	return updated, nil
}

func (s *EtcdEndpointStateStore) Delete(ctx context.Context, env, name string) (models.EndpointRecord, error) {
	if !mptypes.IsSupportedPoolEnv(env) {
		return models.EndpointRecord{}, mperrors.ErrUnsupportedEnv
	}
	key := s.recordKey(env, name)

	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return models.EndpointRecord{}, err
	}
	if len(resp.Kvs) == 0 {
		return models.EndpointRecord{}, mperrors.ErrNotFound
	}
	var current models.EndpointRecord
	if err := json.Unmarshal(resp.Kvs[0].Value, &current); err != nil {
		return models.EndpointRecord{}, err
	}

	if _, err := s.client.Delete(ctx, key); err != nil {
		return models.EndpointRecord{}, err
	}
	current.State = mptypes.EndpointStateDeleted
	current.Version++
	current.LastUpdatedAt = time.Now().UTC()
	log.Info().Str("env", env).Str("endpoint", name).Msg("endpoint record deleted from etcd")
	return current, nil
}
