package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"

	"github.com/modelport/modelport/internal/api"
	"github.com/modelport/modelport/internal/application"
	"github.com/modelport/modelport/internal/client"
	"github.com/modelport/modelport/internal/labels"
	"github.com/modelport/modelport/internal/preprocess"
	"github.com/modelport/modelport/internal/ranker"
)

const DefaultTopK = 5

// Predictor is the inference side of a serving node, satisfied by
// client.Inference and by test doubles.
type Predictor interface {
	Predict(ctx context.Context, input preprocess.Tensor) ([]float32, error)
}

// Params describes one end-to-end demo run: which files make up the model,
// how to deploy it, and which image to classify.
type Params struct {
	ModelName       string
	EntryPoint      string
	ModelFiles      []string
	EndpointName    string
	InstanceType    string
	AcceleratorType string
	InstanceCount   int
	ImagePath       string
	LabelsPath      string
	ClassCount      int
	TopK            int
	ReadyTimeout    time.Duration
	KeepEndpoint    bool
}

// Pipeline drives the whole demo: package and upload the model, deploy an
// endpoint, classify an image against it, and tear the endpoint down.
type Pipeline struct {
	artifacts    *application.ArtifactService
	control      *client.ControlPlane
	newPredictor func(address string) Predictor
}

func New(artifacts *application.ArtifactService, control *client.ControlPlane) *Pipeline {
	return &Pipeline{
		artifacts: artifacts,
		control:   control,
		newPredictor: func(address string) Predictor {
			return client.NewInference(address)
		},
	}
}

// WithPredictorFactory overrides how the pipeline reaches a serving node.
func (p *Pipeline) WithPredictorFactory(factory func(address string) Predictor) *Pipeline {
	p.newPredictor = factory
	return p
}

// Run executes the pipeline and returns the top-k predictions. The endpoint
// is torn down before Run returns even when a later step fails, unless
// KeepEndpoint is set.
func (p *Pipeline) Run(ctx context.Context, params Params) (predictions []ranker.Prediction, err error) {
	if params.TopK <= 0 {
		params.TopK = DefaultTopK
	}
	if params.ReadyTimeout <= 0 {
		params.ReadyTimeout = 5 * time.Minute
	}

	table, err := labels.LoadFile(params.LabelsPath, params.ClassCount)
	if err != nil {
		return nil, err
	}

	artifact, err := p.artifacts.PackageAndUpload(ctx, params.ModelName, params.EntryPoint, params.ModelFiles...)
	if err != nil {
		return nil, err
	}
	log.Info().Str("uri", artifact.URI).Str("sha256", artifact.SHA256).Msg("artifact ready")

	deployed, err := p.control.Deploy(ctx, api.CreateEndpointRequest{
		EndpointName:    params.EndpointName,
		ArtifactURI:     artifact.URI,
		EntryPoint:      params.EntryPoint,
		InstanceType:    params.InstanceType,
		AcceleratorType: params.AcceleratorType,
		InstanceCount:   params.InstanceCount,
	})
	if err != nil {
		return nil, err
	}

	// The endpoint exists from here on, so tear it down no matter which
	// later step fails.
	if !params.KeepEndpoint {
		defer func() {
			teardownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
			defer cancel()
			if terr := p.control.Teardown(teardownCtx, params.EndpointName); terr != nil {
				log.Error().Err(terr).Str("endpoint", params.EndpointName).Msg("teardown failed")
				if err == nil {
					err = terr
				}
			} else {
				log.Info().Str("endpoint", params.EndpointName).Msg("endpoint torn down")
			}
		}()
	}

	readyCtx, cancel := context.WithTimeout(ctx, params.ReadyTimeout)
	defer cancel()
	ready, err := p.control.AwaitInService(readyCtx, deployed.Name)
	if err != nil {
		return nil, err
	}
	log.Info().Str("endpoint", ready.Name).Str("address", ready.Address).Msg("endpoint in service")

	input, err := loadImageTensor(params.ImagePath)
	if err != nil {
		return nil, err
	}

	scores, err := p.newPredictor(ready.Address).Predict(ctx, input)
	if err != nil {
		return nil, err
	}

	predictions, err = ranker.TopK(scores, table, params.TopK)
	if err != nil {
		return nil, err
	}
	for _, pred := range predictions {
		log.Info().
			Int("class_index", pred.ClassIndex).
			Str("label", pred.Label).
			Float32("score", pred.Score).
			Msg("prediction")
	}
	return predictions, err
}

func loadImageTensor(path string) (preprocess.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return preprocess.Tensor{}, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return preprocess.Tensor{}, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return preprocess.ImageToTensor(img)
}
