package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting rollover-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := backend.Create(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer cleanup()

	snapshot, err := storage.NewSnapshotRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open snapshot database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer snapshot.Close()

	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.UserSpreadsheetID)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, refreshing on interval only", "error", err)
		} else {
			defer client.Close()
			consumer = client
			logger.Info("AMQP consumer initialized", "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - refreshing on interval only")
	}

	w := worker.New(store, snapshot, consumer, cfg.RefreshInterval)
	logger.Info("Snapshot worker configured",
		"interval", cfg.RefreshInterval, "sqlite_db", cfg.SQLiteDBPath)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
