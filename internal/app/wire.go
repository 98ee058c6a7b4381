package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/modelport/modelport/internal/adapters/docker"
	"github.com/modelport/modelport/internal/adapters/etcd"
	"github.com/modelport/modelport/internal/api"
	"github.com/modelport/modelport/internal/application"
	"github.com/modelport/modelport/internal/objectstore"
	"github.com/modelport/modelport/internal/ports"
	"github.com/modelport/modelport/pkg/config"
)

// Deps bundles the wired adapters behind the HTTP surface. Close releases
// any held connections.
type Deps struct {
	Handler    http.Handler
	closeFuncs []func() error
}

func (d *Deps) Close() {
	for _, f := range d.closeFuncs {
		if err := f(); err != nil {
			log.Error().Err(err).Msg("failed to close dependency")
		}
	}
}

// Build wires the control plane from the environment. With
// USE_MOCK_ADAPTERS=true everything runs in memory; otherwise state lives in
// etcd and containers are launched through the docker daemon.
func Build(ctx context.Context, env config.Env) (*Deps, error) {
	deps := &Deps{}

	var (
		stateStore  ports.EndpointStateStore
		executor    ports.ContainerExecutor
		idempotency ports.IdempotencyKeyStore
	)

	idempotencyTTL := time.Duration(env.IdempotencyTTLSeconds) * time.Second
	if env.UseMockAdapters {
		log.Warn().Msg("running with in-memory adapters, state will not survive a restart")
		stateStore = etcd.NewMemoryEndpointStateStore(nil)
		idempotency = etcd.NewMemoryIdempotencyKeyStore(idempotencyTTL)
		executor = docker.NewMockExecutor()
	} else {
		client, err := clientv3.New(clientv3.Config{
			Endpoints:   env.EtcdEndpoints,
			Username:    env.EtcdUsername,
			Password:    env.EtcdPassword,
			DialTimeout: env.EtcdTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}
		deps.closeFuncs = append(deps.closeFuncs, client.Close)
		stateStore = etcd.NewEtcdEndpointStateStore(client, env.AppName)
		idempotency = etcd.NewEtcdIdempotencyKeyStore(client, env.AppName, idempotencyTTL)

		executor, err = docker.NewExecutor()
		if err != nil {
			deps.Close()
			return nil, err
		}
	}

	endpointService := application.NewEndpointService(stateStore, executor, env.ServingImage, env.ServingBasePort)
	handler := api.NewHandler(endpointService, idempotency)

	deps.Handler = authMiddleware(env.APIAuthToken,
		requestIDMiddleware(
			metricsMiddleware(handler)))
	return deps, nil
}

// BuildObjectStore selects the object store backend named by
// OBJECT_STORE_PROVIDER.
func BuildObjectStore(ctx context.Context, env config.Env) (ports.ObjectStore, error) {
	switch env.ObjectStoreProvider {
	case "s3":
		return objectstore.NewS3Store(ctx, objectstore.S3Config{
			AccessKeyID:     env.AWSAccessKeyID,
			SecretAccessKey: env.AWSSecretAccessKey,
			Region:          env.AWSRegion,
			Endpoint:        env.AWSEndpoint,
		}, env.ObjectStoreBucket)
	case "gcs":
		return objectstore.NewGCSStore(ctx, env.GCPCredentialsJSON, env.ObjectStoreBucket)
	case "memory":
		return objectstore.NewMemoryStore(env.ObjectStoreBucket), nil
	default:
		return nil, fmt.Errorf("unsupported OBJECT_STORE_PROVIDER: %q", env.ObjectStoreProvider)
	}
}
