package api

import (
	"time"

	"github.com/modelport/modelport/internal/data/models"
	mptypes "github.com/modelport/modelport/internal/types"
)

type CreateEndpointRequest struct {
	EndpointName    string `json:"endpoint_name"`
	ArtifactURI     string `json:"artifact_uri"`
	EntryPoint      string `json:"entry_point"`
	InstanceType    string `json:"instance_type"`
	AcceleratorType string `json:"accelerator_type,omitempty"`
	InstanceCount   int    `json:"instance_count"`
}

func (r CreateEndpointRequest) descriptor() models.DeploymentDescriptor {
	count := r.InstanceCount
	if count == 0 {
		count = 1
	}
	return models.DeploymentDescriptor{
		EndpointName:    r.EndpointName,
		ArtifactURI:     r.ArtifactURI,
		EntryPoint:      r.EntryPoint,
		InstanceType:    r.InstanceType,
		AcceleratorType: r.AcceleratorType,
		InstanceCount:   count,
	}
}

type EndpointView struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	Address         string    `json:"address,omitempty"`
	ArtifactURI     string    `json:"artifact_uri"`
	EntryPoint      string    `json:"entry_point"`
	InstanceType    string    `json:"instance_type"`
	AcceleratorType string    `json:"accelerator_type,omitempty"`
	InstanceCount   int       `json:"instance_count"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	LastUpdatedAt   time.Time `json:"last_updated_at"`
}

func viewOf(record models.EndpointRecord) EndpointView {
	return EndpointView{
		Name:            record.Name,
		State:           string(record.State),
		Address:         record.Address,
		ArtifactURI:     record.Descriptor.ArtifactURI,
		EntryPoint:      record.Descriptor.EntryPoint,
		InstanceType:    record.Descriptor.InstanceType,
		AcceleratorType: record.Descriptor.AcceleratorType,
		InstanceCount:   record.Descriptor.InstanceCount,
		FailureReason:   record.FailureReason,
		CreatedAt:       record.CreatedAt,
		LastUpdatedAt:   record.LastUpdatedAt,
	}
}

type ListEndpointsResponse struct {
	Endpoints []EndpointView `json:"endpoints"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// listFilterFromQuery builds the store filter out of the optional query
// parameters on the list route.
func listFilterFromQuery(state, instanceType string) models.EndpointFilter {
	return models.EndpointFilter{
		State:        mptypes.EndpointState(state),
		InstanceType: instanceType,
	}
}
