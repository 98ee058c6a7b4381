package etcd

import (
	"context"
	"sync"
	"time"

	"github.com/modelport/modelport/internal/data/models"
	mperrors "github.com/modelport/modelport/internal/errors"
	mptypes "github.com/modelport/modelport/internal/types"
)

// MemoryEndpointStateStore is the in-process twin of the etcd store, used by
// tests and USE_MOCK_ADAPTERS deployments.
type MemoryEndpointStateStore struct {
	mu    sync.RWMutex
	state map[string]map[string]models.EndpointRecord
}

func NewMemoryEndpointStateStore(seed map[string][]models.EndpointRecord) *MemoryEndpointStateStore {
	store := &MemoryEndpointStateStore{
		state: make(map[string]map[string]models.EndpointRecord),
	}
	for env, items := range seed {
		if _, ok := store.state[env]; !ok {
			store.state[env] = make(map[string]models.EndpointRecord)
		}
		for _, item := range items {
			store.state[env][item.Name] = item
		}
	}
	return store
}

func (s *MemoryEndpointStateStore) List(_ context.Context, env string, filter models.EndpointFilter) ([]models.EndpointRecord, error) {
	if !mptypes.IsSupportedPoolEnv(env) {
		return nil, mperrors.ErrUnsupportedEnv
	}
	env = string(mptypes.NormalizePoolEnv(env))
	s.mu.RLock()
	defer s.mu.RUnlock()

	byName := s.state[env]
	result := make([]models.EndpointRecord, 0, len(byName))
	for _, item := range byName {
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

func (s *MemoryEndpointStateStore) Get(_ context.Context, env, name string) (models.EndpointRecord, error) {
	if !mptypes.IsSupportedPoolEnv(env) {
		return models.EndpointRecord{}, mperrors.ErrUnsupportedEnv
	}
	env = string(mptypes.NormalizePoolEnv(env))
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.state[env][name]
	if !ok {
		return models.EndpointRecord{}, mperrors.ErrNotFound
	}
	return item, nil
}

func (s *MemoryEndpointStateStore) Create(_ context.Context, env string, record models.EndpointRecord) (models.EndpointRecord, error) {
	if !mptypes.IsSupportedPoolEnv(env) {
		return models.EndpointRecord{}, mperrors.ErrUnsupportedEnv
	}
	env = string(mptypes.NormalizePoolEnv(env))
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state[env][record.Name]; ok {
		return models.EndpointRecord{}, mperrors.ErrAlreadyExists
	}
	if s.state[env] == nil {
		s.state[env] = make(map[string]models.EndpointRecord)
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.LastUpdatedAt = now
	record.Version = 1
	s.state[env][record.Name] = record
	return record, nil
}

func (s *MemoryEndpointStateStore) Transition(_ context.Context, env, name string, to mptypes.EndpointState, mutate func(*models.EndpointRecord)) (models.EndpointRecord, error) {
	if !mptypes.IsSupportedPoolEnv(env) {
		return models.EndpointRecord{}, mperrors.ErrUnsupportedEnv
	}
	env = string(mptypes.NormalizePoolEnv(env))
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.state[env][name]
	if !ok {
		return models.EndpointRecord{}, mperrors.ErrNotFound
	}
	if !validTransition(item.State, to) {
		return item, mperrors.ErrInvalidState
	}

	item.State = to
	if mutate != nil {
		mutate(&item)
	}
	item.Version++
	item.LastUpdatedAt = time.Now().UTC()
	s.state[env][name] = item
	return item, nil
}

func (s *MemoryEndpointStateStore) Delete(_ context.Context, env, name string) (models.EndpointRecord, error) {
	if !mptypes.IsSupportedPoolEnv(env) {
		return models.EndpointRecord{}, mperrors.ErrUnsupportedEnv
	}
	env = string(mptypes.NormalizePoolEnv(env))
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.state[env][name]
	if !ok {
		return models.EndpointRecord{}, mperrors.ErrNotFound
	}
	delete(s.state[env], name)
	item.State = mptypes.EndpointStateDeleted
	item.Version++
	item.LastUpdatedAt = time.Now().UTC()
	return item, nil
}

// validTransition encodes the endpoint lifecycle:
// PENDING -> IN_SERVICE | FAILED, IN_SERVICE -> DELETING, any -> DELETING.
func validTransition(from, to mptypes.EndpointState) bool {
	switch to {
	case mptypes.EndpointStateInService:
		return from == mptypes.EndpointStatePending
	case mptypes.EndpointStateFailed:
		return from == mptypes.EndpointStatePending || from == mptypes.EndpointStateInService
	case mptypes.EndpointStateDeleting:
		return from != mptypes.EndpointStateDeleted
	case mptypes.EndpointStateDeleted:
		return from == mptypes.EndpointStateDeleting
	}
	return false
}
