package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modelport/modelport/internal/app"
	"github.com/modelport/modelport/internal/application"
	"github.com/modelport/modelport/internal/client"
	"github.com/modelport/modelport/internal/pipeline"
	"github.com/modelport/modelport/pkg/config"
	"github.com/modelport/modelport/pkg/logger"
)

func main() {
	var (
		modelName    = flag.String("model-name", "resnet152", "model name used for the artifact key")
		entryPoint   = flag.String("entry-point", "resnet152", "inference entry point inside the artifact")
		modelFiles   = flag.String("model-files", "", "comma-separated files to package into the artifact")
		endpointName = flag.String("endpoint-name", "", "endpoint name (defaults to <model-name>-<timestamp>)")
		instanceType = flag.String("instance-type", "ml.m4.xlarge", "instance type for the endpoint")
		accelerator  = flag.String("accelerator-type", "ml.eia1.medium", "accelerator type, empty for none")
		imagePath    = flag.String("image", "", "image file to classify")
		labelsPath   = flag.String("labels", "", "label table file, one label per line")
		classCount   = flag.Int("class-count", 1000, "number of classes the model predicts")
		topK         = flag.Int("top-k", pipeline.DefaultTopK, "number of predictions to report")
		controlURL   = flag.String("control-plane-url", "http://127.0.0.1:8080", "control plane base URL")
		env          = flag.String("env", "int", "deployment environment (int or prod)")
		readyTimeout = flag.Duration("ready-timeout", 5*time.Minute, "how long to wait for the endpoint")
		keepEndpoint = flag.Bool("keep-endpoint", false, "leave the endpoint running after the run")
	)
	flag.Parse()

	config.InitEnv()
	logger.Init()
	cfg := config.Instance()

	if *modelFiles == "" || *imagePath == "" || *labelsPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	name := *endpointName
	if name == "" {
		name = fmt.Sprintf("%s-%d", *modelName, time.Now().Unix())
	}

	ctx := context.Background()
	store, err := app.BuildObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build object store")
	}

	p := pipeline.New(
		application.NewArtifactService(store),
		client.NewControlPlane(*controlURL, *env, cfg.APIAuthToken),
	)

	predictions, err := p.Run(ctx, pipeline.Params{
		ModelName:       *modelName,
		EntryPoint:      *entryPoint,
		ModelFiles:      strings.Split(*modelFiles, ","),
		EndpointName:    name,
		InstanceType:    *instanceType,
		AcceleratorType: *accelerator,
		InstanceCount:   1,
		ImagePath:       *imagePath,
		LabelsPath:      *labelsPath,
		ClassCount:      *classCount,
		TopK:            *topK,
		ReadyTimeout:    *readyTimeout,
		KeepEndpoint:    *keepEndpoint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline failed")
	}

	fmt.Printf("top-%d predictions for %s:\n", len(predictions), *imagePath)
	for i, pred := range predictions {
		fmt.Printf("%2d. [%4d] %-40s %.6f\n", i+1, pred.ClassIndex, pred.Label, pred.Score)
	}
}
