package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/modelport/modelport/internal/app"
	"github.com/modelport/modelport/internal/artifact"
	"github.com/modelport/modelport/internal/objectstore"
	"github.com/modelport/modelport/internal/serving"
	"github.com/modelport/modelport/pkg/config"
	"github.com/modelport/modelport/pkg/logger"
	"github.com/modelport/modelport/pkg/metric"
)

const defaultClassCount = 1000

func main() {
	config.InitEnv()
	logger.Init()
	metric.Init()
	env := config.Instance()

	entryPoint := strings.TrimSpace(os.Getenv("MODEL_ENTRY_POINT"))
	if entryPoint == "" {
		entryPoint = "model"
	}
	classCount := defaultClassCount
	if raw := strings.TrimSpace(os.Getenv("MODEL_CLASS_COUNT")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			log.Fatal().Str("value", raw).Msg("invalid MODEL_CLASS_COUNT")
		}
		classCount = n
	}

	engine, err := buildEngine(env, entryPoint, classCount)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build inference engine")
	}
	defer engine.Close()

	router := serving.NewRouter(entryPoint, engine)
	log.Info().Int("port", env.AppPort).Str("model", entryPoint).Msg("serving node listening")
	if err := router.Run(fmt.Sprintf(":%d", env.AppPort)); err != nil {
		log.Fatal().Err(err).Msg("serving node exited with error")
	}
}

// buildEngine fetches and unpacks the model artifact, then loads it into an
// onnxruntime session. Without an artifact URI it falls back to the
// deterministic stub so the node can run in demo setups with no model.
func buildEngine(env config.Env, entryPoint string, classCount int) (serving.InferenceEngine, error) {
	artifactURI := strings.TrimSpace(os.Getenv("MODEL_ARTIFACT_URI"))
	if artifactURI == "" || env.UseMockAdapters {
		log.Warn().Msg("no model artifact configured, using stub engine")
		return serving.NewStubEngine(classCount), nil
	}

	modelDir, err := fetchModel(artifactURI, env)
	if err != nil {
		return nil, err
	}
	return serving.NewONNXEngine(filepath.Join(modelDir, entryPoint+".onnx"), classCount)
}

func fetchModel(artifactURI string, env config.Env) (string, error) {
	_, _, key, err := objectstore.ParseURI(artifactURI)
	if err != nil {
		return "", err
	}

	store, err := app.BuildObjectStore(context.Background(), env)
	if err != nil {
		return "", err
	}

	body, err := store.Download(context.Background(), key)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", artifactURI, err)
	}
	defer body.Close()

	workDir, err := os.MkdirTemp("", "modelport-serving-")
	if err != nil {
		return "", err
	}
	archivePath := filepath.Join(workDir, "model.tar.gz")
	f, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	files, err := artifact.Unpack(archivePath, workDir)
	if err != nil {
		return "", err
	}
	log.Info().Str("uri", artifactURI).Strs("files", files).Msg("model artifact unpacked")
	return workDir, nil
}
