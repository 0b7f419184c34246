package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Brownie44l1/freshness-api/internal/config"
	"github.com/Brownie44l1/freshness-api/internal/logging"
	"github.com/Brownie44l1/freshness-api/internal/pipeline"
	"github.com/Brownie44l1/freshness-api/internal/worker"
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

	w := worker.New(worker.Options{
		Broker:        cfg.MQTT.Broker,
		RequestTopic:  cfg.MQTT.RequestTopic,
		ResponseTopic: cfg.MQTT.ResponseTopic,
		Timeout:       cfg.MQTT.RequestTimeout.Duration,
		MaxInFlight:   cfg.MQTT.MaxInFlight,
	}, orchestrator, logger)
	if err := w.Start(); err != nil {
		logger.Fatal("failed to start worker", zap.Error(err))
	}
	defer w.Stop()

	logger.Info("worker started",
		zap.Bool("model_loaded", orchestrator.Ready()),
		zap.String("request_topic", cfg.MQTT.RequestTopic),
		zap.String("response_topic", cfg.MQTT.ResponseTopic),
		zap.Int("max_in_flight", cfg.MQTT.MaxInFlight))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))
}
