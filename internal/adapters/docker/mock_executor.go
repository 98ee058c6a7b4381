package docker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/modelport/modelport/internal/data/models"
)

// MockExecutor pretends to launch containers. It hands out synthetic
// container ids and remembers every call so tests can assert on them.
type MockExecutor struct {
	mu       sync.Mutex
	launched []models.LaunchSpec
	stopped  []string

	// FailLaunch makes the next Launch call return an error, simulating a
	// daemon that cannot bring the image up.
	FailLaunch bool

	// HoldLaunch, when set, blocks Launch until the channel is closed so
	// tests can interleave other calls with a launch in flight.
	HoldLaunch chan struct{}
}

func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

func (m *MockExecutor) Launch(_ context.Context, env string, spec models.LaunchSpec) (models.LaunchResult, error) {
	if m.HoldLaunch != nil {
		<-m.HoldLaunch
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailLaunch {
		return models.LaunchResult{}, fmt.Errorf("mock launch failure for %s/%s", env, spec.EndpointName)
	}
	m.launched = append(m.launched, spec)
	return models.LaunchResult{
		ContainerID: "mock-" + uuid.NewString(),
		Address:     fmt.Sprintf("127.0.0.1:%d", spec.HostPort),
	}, nil
}

func (m *MockExecutor) Stop(_ context.Context, containerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = append(m.stopped, containerID)
	return nil
}

func (m *MockExecutor) Launched() []models.LaunchSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.LaunchSpec, len(m.launched))
	copy(out, m.launched)
	return out
}

func (m *MockExecutor) Stopped() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.stopped))
	copy(out, m.stopped)
	return out
}
