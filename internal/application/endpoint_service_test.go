package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelport/modelport/internal/adapters/docker"
	"github.com/modelport/modelport/internal/adapters/etcd"
	"github.com/modelport/modelport/internal/data/models"
	mperrors "github.com/modelport/modelport/internal/errors"
	mptypes "github.com/modelport/modelport/internal/types"
)

func testDescriptor(name string) models.DeploymentDescriptor {
	return models.DeploymentDescriptor{
		EndpointName:    name,
		ArtifactURI:     "mem://models/models/" + name + ".tar.gz",
		EntryPoint:      "resnet152",
		InstanceType:    "ml.m4.xlarge",
		AcceleratorType: "ml.eia1.medium",
		InstanceCount:   1,
	}
}

func newTestService(executor *docker.MockExecutor) *EndpointService {
	return NewEndpointService(etcd.NewMemoryEndpointStateStore(nil), executor, "modelport/serving-node:latest", 9000)
}

func TestDeployReachesInService(t *testing.T) {
	executor := docker.NewMockExecutor()
	svc := newTestService(executor)
	ctx := context.Background()

	record, err := svc.Deploy(ctx, "int", testDescriptor("resnet-ep"))
	require.NoError(t, err)
	assert.Equal(t, mptypes.EndpointStatePending, record.State)

	svc.AwaitLaunches()
	record, err = svc.Get(ctx, "int", "resnet-ep")
	require.NoError(t, err)
	assert.Equal(t, mptypes.EndpointStateInService, record.State)
	assert.NotEmpty(t, record.Address)
	assert.NotEmpty(t, record.ContainerID)

	launched := executor.Launched()
	require.Len(t, launched, 1)
	assert.Equal(t, "resnet-ep", launched[0].EndpointName)
	// ml.eia1.medium maps to a single attached device.
	assert.Equal(t, 1, launched[0].DeviceCount)
	assert.Equal(t, 9000, launched[0].HostPort)
}

func TestDeployMarksFailedOnLaunchError(t *testing.T) {
	executor := docker.NewMockExecutor()
	executor.FailLaunch = true
	svc := newTestService(executor)
	ctx := context.Background()

	_, err := svc.Deploy(ctx, "int", testDescriptor("resnet-ep"))
	require.NoError(t, err)

	svc.AwaitLaunches()
	record, err := svc.Get(ctx, "int", "resnet-ep")
	require.NoError(t, err)
	assert.Equal(t, mptypes.EndpointStateFailed, record.State)
	assert.NotEmpty(t, record.FailureReason)
}

func TestDeployValidatesDescriptor(t *testing.T) {
	svc := newTestService(docker.NewMockExecutor())
	ctx := context.Background()

	d := testDescriptor("resnet-ep")
	d.InstanceType = "ml.z9.mega"
	_, err := svc.Deploy(ctx, "int", d)
	assert.ErrorIs(t, err, mperrors.ErrUnknownInstanceType)

	d = testDescriptor("resnet-ep")
	d.AcceleratorType = "ml.eia9.huge"
	_, err = svc.Deploy(ctx, "int", d)
	assert.ErrorIs(t, err, mperrors.ErrUnknownAccelerator)

	d = testDescriptor("resnet-ep")
	d.InstanceCount = 0
	_, err = svc.Deploy(ctx, "int", d)
	assert.ErrorIs(t, err, mperrors.ErrInvalidRequest)

	d = testDescriptor("")
	_, err = svc.Deploy(ctx, "int", d)
	assert.ErrorIs(t, err, mperrors.ErrInvalidRequest)
}

func TestDeployRejectsDuplicateName(t *testing.T) {
	svc := newTestService(docker.NewMockExecutor())
	ctx := context.Background()

	_, err := svc.Deploy(ctx, "int", testDescriptor("resnet-ep"))
	require.NoError(t, err)
	_, err = svc.Deploy(ctx, "int", testDescriptor("resnet-ep"))
	assert.ErrorIs(t, err, mperrors.ErrAlreadyExists)
}

func TestTeardownStopsContainerAndDeletes(t *testing.T) {
	executor := docker.NewMockExecutor()
	svc := newTestService(executor)
	ctx := context.Background()

	_, err := svc.Deploy(ctx, "int", testDescriptor("resnet-ep"))
	require.NoError(t, err)
	svc.AwaitLaunches()
	deployed, err := svc.Get(ctx, "int", "resnet-ep")
	require.NoError(t, err)

	deleted, err := svc.Teardown(ctx, "int", "resnet-ep")
	require.NoError(t, err)
	assert.Equal(t, mptypes.EndpointStateDeleted, deleted.State)

	stopped := executor.Stopped()
	require.Len(t, stopped, 1)
	assert.Equal(t, deployed.ContainerID, stopped[0])

	_, err = svc.Get(ctx, "int", "resnet-ep")
	assert.ErrorIs(t, err, mperrors.ErrNotFound)
}

func TestTeardownDuringLaunchStopsOrphanedContainer(t *testing.T) {
	executor := docker.NewMockExecutor()
	executor.HoldLaunch = make(chan struct{})
	svc := newTestService(executor)
	ctx := context.Background()

	_, err := svc.Deploy(ctx, "int", testDescriptor("resnet-ep"))
	require.NoError(t, err)

	// Tear the PENDING endpoint down while its container is still starting.
	_, err = svc.Teardown(ctx, "int", "resnet-ep")
	require.NoError(t, err)

	close(executor.HoldLaunch)
	svc.AwaitLaunches()

	// The launched container has no record tracking it anymore, so the
	// service must have stopped it.
	require.Len(t, executor.Launched(), 1)
	assert.Len(t, executor.Stopped(), 1)
}

func TestTeardownMissingEndpoint(t *testing.T) {
	svc := newTestService(docker.NewMockExecutor())
	_, err := svc.Teardown(context.Background(), "int", "ghost")
	assert.ErrorIs(t, err, mperrors.ErrNotFound)
}
