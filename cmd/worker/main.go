package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/klimeurt/repolens/internal/analyzer"
	"github.com/klimeurt/repolens/internal/broker"
	"github.com/klimeurt/repolens/internal/config"
	"github.com/klimeurt/repolens/internal/logging"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireNATS(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := analyzer.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create analyzer", zap.Error(err))
	}

	// Create worker service
	w, err := broker.NewWorker(cfg, a, logger)
	if err != nil {
		logger.Fatal("Failed to create worker", zap.Error(err))
	}

	// Start the worker service
	if err := w.Start(); err != nil {
		logger.Fatal("Failed to start worker", zap.Error(err))
	}
	defer w.Stop()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Received shutdown signal, stopping worker")
}
