package ports

import (
	"context"
	"io"
	"time"

	"github.com/modelport/modelport/internal/data/models"
	mptypes "github.com/modelport/modelport/internal/types"
)

type EndpointStateStore interface {
	List(ctx context.Context, env string, filter models.EndpointFilter) ([]models.EndpointRecord, error)
	Get(ctx context.Context, env, name string) (models.EndpointRecord, error)
	Create(ctx context.Context, env string, record models.EndpointRecord) (models.EndpointRecord, error)
	Transition(ctx context.Context, env, name string, to mptypes.EndpointState, mutate func(*models.EndpointRecord)) (models.EndpointRecord, error)
	Delete(ctx context.Context, env, name string) (models.EndpointRecord, error)
}

type ContainerExecutor interface {
	Launch(ctx context.Context, env string, spec models.LaunchSpec) (models.LaunchResult, error)
	Stop(ctx context.Context, containerID string) error
}

type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type IdempotencyKeyStore interface {
	Get(ctx context.Context, scope, key string) (*models.IdempotencyRecord, error)
	Put(ctx context.Context, scope, key string, record models.IdempotencyRecord) error
}
