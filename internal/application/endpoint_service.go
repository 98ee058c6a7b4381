package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modelport/modelport/internal/data/models"
	mperrors "github.com/modelport/modelport/internal/errors"
	"github.com/modelport/modelport/internal/ports"
	mptypes "github.com/modelport/modelport/internal/types"
)

const launchTimeout = 5 * time.Minute

// EndpointService owns the endpoint lifecycle: it validates deployment
// descriptors against the instance/accelerator catalogs, drives the state
// machine in the state store, and asks the container executor to bring
// serving containers up and down.
type EndpointService struct {
	store    ports.EndpointStateStore
	executor ports.ContainerExecutor

	servingImage string
	basePort     int
	portCounter  int64
	launches     sync.WaitGroup
}

func NewEndpointService(store ports.EndpointStateStore, executor ports.ContainerExecutor, servingImage string, basePort int) *EndpointService {
	return &EndpointService{
		store:        store,
		executor:     executor,
		servingImage: servingImage,
		basePort:     basePort,
	}
}

func (s *EndpointService) validateDescriptor(d models.DeploymentDescriptor) error {
	if strings.TrimSpace(d.EndpointName) == "" {
		return fmt.Errorf("%w: endpoint name is required", mperrors.ErrInvalidRequest)
	}
	if strings.TrimSpace(d.ArtifactURI) == "" {
		return fmt.Errorf("%w: artifact uri is required", mperrors.ErrInvalidRequest)
	}
	if strings.TrimSpace(d.EntryPoint) == "" {
		return fmt.Errorf("%w: entry point is required", mperrors.ErrInvalidRequest)
	}
	if d.InstanceCount < 1 {
		return fmt.Errorf("%w: instance count must be at least 1", mperrors.ErrInvalidRequest)
	}
	if _, ok := mptypes.LookupInstanceType(d.InstanceType); !ok {
		return fmt.Errorf("%w: %q", mperrors.ErrUnknownInstanceType, d.InstanceType)
	}
	if _, ok := mptypes.LookupAcceleratorType(d.AcceleratorType); !ok {
		return fmt.Errorf("%w: %q", mperrors.ErrUnknownAccelerator, d.AcceleratorType)
	}
	return nil
}

// Deploy validates the descriptor, creates the endpoint record in PENDING
// and launches the serving container asynchronously. Callers poll Get until
// the record reaches IN_SERVICE or FAILED.
func (s *EndpointService) Deploy(ctx context.Context, env string, descriptor models.DeploymentDescriptor) (models.EndpointRecord, error) {
	if err := s.validateDescriptor(descriptor); err != nil {
		return models.EndpointRecord{}, err
	}

	record, err := s.store.Create(ctx, env, models.EndpointRecord{
		Name:       descriptor.EndpointName,
		Descriptor: descriptor,
		State:      mptypes.EndpointStatePending,
	})
	if err != nil {
		return models.EndpointRecord{}, err
	}
	log.Info().
		Str("env", env).
		Str("endpoint", record.Name).
		Str("instance_type", descriptor.InstanceType).
		Str("accelerator_type", descriptor.AcceleratorType).
		Msg("endpoint registered, launching serving container")

	// The launch outlives the request.
	launchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), launchTimeout)
	s.launches.Add(1)
	go func() {
		defer cancel()
		defer s.launches.Done()
		s.launch(launchCtx, env, descriptor)
	}()

	return record, nil
}

func (s *EndpointService) launch(ctx context.Context, env string, descriptor models.DeploymentDescriptor) {
	accel, _ := mptypes.LookupAcceleratorType(descriptor.AcceleratorType)
	spec := models.LaunchSpec{
		EndpointName:    descriptor.EndpointName,
		Image:           s.servingImage,
		ArtifactURI:     descriptor.ArtifactURI,
		EntryPoint:      descriptor.EntryPoint,
		HostPort:        s.nextPort(),
		AcceleratorType: descriptor.AcceleratorType,
		DeviceCount:     accel.DeviceCount,
	}

	result, err := s.executor.Launch(ctx, env, spec)
	if err != nil {
		if _, terr := s.store.Transition(ctx, env, descriptor.EndpointName, mptypes.EndpointStateFailed, func(r *models.EndpointRecord) {
			r.FailureReason = err.Error()
		}); terr != nil {
			log.Error().Err(terr).Str("endpoint", descriptor.EndpointName).Msg("failed to mark endpoint FAILED after launch error")
		}
		return
	}

	if _, err := s.store.Transition(ctx, env, descriptor.EndpointName, mptypes.EndpointStateInService, func(r *models.EndpointRecord) {
		r.Address = result.Address
		r.ContainerID = result.ContainerID
	}); err != nil {
		// The record moved on (torn down mid-launch); the container must not
		// be left running with nothing tracking it.
		log.Warn().Err(err).Str("endpoint", descriptor.EndpointName).Msg("endpoint gone after launch, stopping container")
		if serr := s.executor.Stop(ctx, result.ContainerID); serr != nil {
			log.Error().Err(serr).Str("container_id", result.ContainerID).Msg("failed to stop orphaned container")
		}
	}
}

// AwaitLaunches blocks until every launch started so far has settled. Test
// hook; production callers poll Get instead.
func (s *EndpointService) AwaitLaunches() {
	s.launches.Wait()
}

func (s *EndpointService) Get(ctx context.Context, env, name string) (models.EndpointRecord, error) {
	return s.store.Get(ctx, env, name)
}

func (s *EndpointService) List(ctx context.Context, env string, filter models.EndpointFilter) ([]models.EndpointRecord, error) {
	return s.store.List(ctx, env, filter)
}

// Teardown moves the endpoint through DELETING, stops its container, and
// removes the record. Endpoints that never got a container (FAILED before
// launch) are removed without an executor call.
func (s *EndpointService) Teardown(ctx context.Context, env, name string) (models.EndpointRecord, error) {
	record, err := s.store.Transition(ctx, env, name, mptypes.EndpointStateDeleting, nil)
	if err != nil {
		return models.EndpointRecord{}, err
	}

	if record.ContainerID != "" {
		if err := s.executor.Stop(ctx, record.ContainerID); err != nil {
			// The record stays in DELETING so a retry can finish the job.
			log.Error().Err(err).Str("endpoint", name).Str("container_id", record.ContainerID).Msg("failed to stop serving container")
			return record, err
		}
	}

	deleted, err := s.store.Delete(ctx, env, name)
	if err != nil {
		return models.EndpointRecord{}, err
	}
	log.Info().Str("env", env).Str("endpoint", name).Msg("endpoint torn down")
	return deleted, nil
}

func (s *EndpointService) nextPort() int {
	offset := atomic.AddInt64(&s.portCounter, 1)
	return s.basePort + int(offset) - 1
}
