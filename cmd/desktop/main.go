package main

import (
	"go.uber.org/zap"

	"github.com/Brownie44l1/freshness-api/internal/config"
	"github.com/Brownie44l1/freshness-api/internal/logging"
	"github.com/Brownie44l1/freshness-api/internal/pipeline"
	"github.com/Brownie44l1/freshness-api/internal/ui"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	orchestrator, closeModel, err := pipeline.FromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build prediction pipeline", zap.Error(err))
	}
	defer closeModel()

	ui.CreateApp(orchestrator, logger).Run()
}
