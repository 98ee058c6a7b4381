package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"

	"github.com/modelport/modelport/internal/data/models"
)

const servingContainerPort = "8080/tcp"

// Executor launches serving containers for endpoints through the local
// docker daemon.
type Executor struct {
	cli *client.Client
}

func NewExecutor() (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Executor{cli: cli}, nil
}

func (e *Executor) Launch(ctx context.Context, env string, spec models.LaunchSpec) (models.LaunchResult, error) {
	envVars := []string{
		"MODEL_ARTIFACT_URI=" + spec.ArtifactURI,
		"MODEL_ENTRY_POINT=" + spec.EntryPoint,
		"APP_ENV=" + env,
	}
	for k, v := range spec.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", k, v))
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			servingContainerPort: []nat.PortBinding{
				{
					HostIP:   "0.0.0.0",
					HostPort: fmt.Sprintf("%d", spec.HostPort),
				},
			},
		},
	}
	if spec.DeviceCount > 0 {
		hostConfig.Resources = container.Resources{
			DeviceRequests: []container.DeviceRequest{
				{
					Driver:       "nvidia",
					Count:        spec.DeviceCount,
					Capabilities: [][]string{{"gpu", "nvidia", "compute", "utility"}},
				},
			},
		}
	}

	containerName := fmt.Sprintf("mp-%s-%s", env, spec.EndpointName)
	resp, err := e.cli.ContainerCreate(ctx,
		&container.Config{
			Image: spec.Image,
			Env:   envVars,
			ExposedPorts: nat.PortSet{
				servingContainerPort: struct{}{},
			},
		},
		hostConfig,
		nil, nil, containerName)
	if err != nil {
		return models.LaunchResult{}, fmt.Errorf("failed to create serving container for %s: %w", spec.EndpointName, err)
	}

	if err := e.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return models.LaunchResult{}, fmt.Errorf("failed to start serving container %s: %w", resp.ID, err)
	}

	log.Info().
		Str("endpoint", spec.EndpointName).
		Str("container_id", resp.ID).
		Int("host_port", spec.HostPort).
		Int("device_count", spec.DeviceCount).
		Msg("serving container started")

	return models.LaunchResult{
		ContainerID: resp.ID,
		Address:     fmt.Sprintf("127.0.0.1:%d", spec.HostPort),
	}, nil
}

func (e *Executor) Stop(ctx context.Context, containerID string) error {
	if err := e.cli.ContainerStop(ctx, containerID, container.StopOptions{}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", containerID, err)
	}
	if err := e.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", containerID, err)
	}
	return nil
}
