package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelport/modelport/internal/adapters/docker"
	"github.com/modelport/modelport/internal/adapters/etcd"
	"github.com/modelport/modelport/internal/api"
	"github.com/modelport/modelport/internal/application"
	"github.com/modelport/modelport/internal/client"
	"github.com/modelport/modelport/internal/objectstore"
	"github.com/modelport/modelport/internal/preprocess"
)

type fixedPredictor struct {
	scores []float32
}

func (p fixedPredictor) Predict(_ context.Context, input preprocess.Tensor) ([]float32, error) {
	return p.scores, nil
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeTestImage(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.RGBA{R: 180, G: 120, B: 60, A: 255})
		}
	}
	path := filepath.Join(dir, "input.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func newTestPipeline(t *testing.T, scores []float32) (*Pipeline, *client.ControlPlane) {
	t.Helper()

	endpointService := application.NewEndpointService(
		etcd.NewMemoryEndpointStateStore(nil),
		docker.NewMockExecutor(),
		"modelport/serving-node:latest",
		9000,
	)
	handler := api.NewHandler(endpointService, etcd.NewMemoryIdempotencyKeyStore(time.Hour))
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	control := client.NewControlPlane(server.URL, "int", "")
	control.PollInterval = 10 * time.Millisecond
	artifacts := application.NewArtifactService(objectstore.NewMemoryStore("models"))

	p := New(artifacts, control).WithPredictorFactory(func(string) Predictor {
		return fixedPredictor{scores: scores}
	})
	return p, control
}

func TestPipelineRunRanksTopFive(t *testing.T) {
	dir := t.TempDir()
	modelFile := writeTempFile(t, dir, "resnet152.onnx", "not a real model")
	labelsFile := writeTempFile(t, dir, "labels.txt",
		strings.Join([]string{"tench", "goldfish", "shark", "ray", "hen", "ostrich"}, "\n"))
	imageFile := writeTestImage(t, dir)

	p, control := newTestPipeline(t, []float32{0.1, 0.9, 0.05, 0.02, 0.01, 0.02})

	predictions, err := p.Run(context.Background(), Params{
		ModelName:       "resnet152",
		EntryPoint:      "resnet152",
		ModelFiles:      []string{modelFile},
		EndpointName:    "resnet-demo",
		InstanceType:    "ml.m4.xlarge",
		AcceleratorType: "ml.eia1.medium",
		InstanceCount:   1,
		ImagePath:       imageFile,
		LabelsPath:      labelsFile,
		ClassCount:      6,
		ReadyTimeout:    30 * time.Second,
	})
	require.NoError(t, err)
	require.Len(t, predictions, 5)

	assert.Equal(t, 1, predictions[0].ClassIndex)
	assert.Equal(t, "goldfish", predictions[0].Label)
	assert.Equal(t, 0, predictions[1].ClassIndex)
	assert.Equal(t, 2, predictions[2].ClassIndex)
	// Tied scores keep ascending index order.
	assert.Equal(t, 3, predictions[3].ClassIndex)
	assert.Equal(t, 5, predictions[4].ClassIndex)

	// The endpoint must be gone after the run.
	remaining, err := control.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestPipelineKeepEndpoint(t *testing.T) {
	dir := t.TempDir()
	modelFile := writeTempFile(t, dir, "resnet152.onnx", "weights")
	labelsFile := writeTempFile(t, dir, "labels.txt", "a\nb\nc")
	imageFile := writeTestImage(t, dir)

	p, control := newTestPipeline(t, []float32{0.2, 0.5, 0.3})

	predictions, err := p.Run(context.Background(), Params{
		ModelName:     "resnet152",
		EntryPoint:    "resnet152",
		ModelFiles:    []string{modelFile},
		EndpointName:  "resnet-demo",
		InstanceType:  "ml.m4.xlarge",
		InstanceCount: 1,
		ImagePath:     imageFile,
		LabelsPath:    labelsFile,
		ClassCount:    3,
		TopK:          2,
		KeepEndpoint:  true,
		ReadyTimeout:  30 * time.Second,
	})
	require.NoError(t, err)
	require.Len(t, predictions, 2)
	assert.Equal(t, 1, predictions[0].ClassIndex)

	remaining, err := control.List(context.Background())
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "resnet-demo", remaining[0].Name)
	// The artifact reference produced by packaging flows through upload and
	// deployment unchanged.
	assert.Equal(t, "mem://models/models/resnet152.tar.gz", remaining[0].ArtifactURI)
}

func TestPipelineTearsDownOnPredictFailure(t *testing.T) {
	dir := t.TempDir()
	modelFile := writeTempFile(t, dir, "resnet152.onnx", "weights")
	labelsFile := writeTempFile(t, dir, "labels.txt", "a\nb\nc")
	imageFile := writeTestImage(t, dir)

	// Three labels but four scores: the ranker rejects the vector after the
	// endpoint is already up, so teardown must still run.
	p, control := newTestPipeline(t, []float32{0.1, 0.2, 0.3, 0.4})

	_, err := p.Run(context.Background(), Params{
		ModelName:     "resnet152",
		EntryPoint:    "resnet152",
		ModelFiles:    []string{modelFile},
		EndpointName:  "resnet-demo",
		InstanceType:  "ml.m4.xlarge",
		InstanceCount: 1,
		ImagePath:     imageFile,
		LabelsPath:    labelsFile,
		ClassCount:    3,
		ReadyTimeout:  30 * time.Second,
	})
	require.Error(t, err)

	remaining, lerr := control.List(context.Background())
	require.NoError(t, lerr)
	assert.Empty(t, remaining)
}
