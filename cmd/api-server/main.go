package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/modelport/modelport/internal/app"
	"github.com/modelport/modelport/pkg/config"
	"github.com/modelport/modelport/pkg/logger"
	"github.com/modelport/modelport/pkg/metric"
)

func main() {
	config.InitEnv()
	logger.Init()
	metric.Init()
	env := config.Instance()

	deps, err := app.Build(context.Background(), env)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire control plane")
	}
	defer deps.Close()

	if err := app.Serve(deps.Handler, env.AppPort); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}
