package models

import (
	"time"

	mptypes "github.com/modelport/modelport/internal/types"
)

// ModelArtifact describes a packaged model archive after upload. The URI is
// the single reference that flows unchanged from packaging through deployment.
type ModelArtifact struct {
	ModelName  string    `json:"model_name"`
	URI        string    `json:"uri"`
	SHA256     string    `json:"sha256"`
	SizeBytes  int64     `json:"size_bytes"`
	EntryPoint string    `json:"entry_point"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DeploymentDescriptor is the configuration record consumed by a single
// deployment call.
type DeploymentDescriptor struct {
	EndpointName    string `json:"endpoint_name"`
	ArtifactURI     string `json:"artifact_uri"`
	EntryPoint      string `json:"entry_point"`
	InstanceType    string `json:"instance_type"`
	AcceleratorType string `json:"accelerator_type,omitempty"`
	InstanceCount   int    `json:"instance_count"`
}

type EndpointRecord struct {
	Name          string                `json:"name"`
	Descriptor    DeploymentDescriptor  `json:"descriptor"`
	State         mptypes.EndpointState `json:"state"`
	Address       string                `json:"address,omitempty"`
	ContainerID   string                `json:"container_id,omitempty"`
	FailureReason string                `json:"failure_reason,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	LastUpdatedAt time.Time             `json:"last_updated_at"`
	Version       int64                 `json:"version"`
}

type EndpointFilter struct {
	State        mptypes.EndpointState
	InstanceType string
}

// LaunchSpec is what the container executor needs to bring a serving
// container up for an endpoint.
type LaunchSpec struct {
	EndpointName    string
	Image           string
	ArtifactURI     string
	EntryPoint      string
	HostPort        int
	AcceleratorType string
	DeviceCount     int
	Env             map[string]string
}

type LaunchResult struct {
	ContainerID string
	Address     string
}

type IdempotencyRecord struct {
	RequestHash  string
	StatusCode   int
	ResponseBody []byte
	ContentType  string
}
