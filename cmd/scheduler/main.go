package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klimeurt/repolens/internal/broker"
	"github.com/klimeurt/repolens/internal/config"
	"github.com/klimeurt/repolens/internal/logging"
	"github.com/klimeurt/repolens/internal/scheduler"
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

	publisher, err := broker.NewPublisher(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create publisher", zap.Error(err))
	}
	defer publisher.Close()

	s, err := scheduler.New(cfg, publisher, logger)
	if err != nil {
		logger.Fatal("Failed to create scheduler", zap.Error(err))
	}

	s.Start()

	// Run immediately on startup if configured
	if cfg.RunOnStartup {
		logger.Info("Queueing watched repositories on startup")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if err := s.PublishAll(ctx); err != nil {
			logger.Error("Initial run failed", zap.Error(err))
		}
		cancel()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	s.Stop()
}
