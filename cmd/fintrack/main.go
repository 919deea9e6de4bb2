package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/advisor"
	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := backend.Create(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer cleanup()
	logger.Info("Ledger backend initialized", "backend", cfg.DataBackend)

	// AMQP is optional; without it mutations simply go unannounced and
	// the worker falls back to its periodic refresh.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.UserSpreadsheetID)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			events = nil
		} else {
			defer events.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - ledger events will not be published")
	}

	var notifier session.Notifier
	if events != nil {
		notifier = events
	}
	sess := session.New(store, notifier)
	if err := sess.Load(ctx); err != nil {
		// The server still starts; reads fall back to the snapshot and a
		// later /api/reload can recover.
		logger.Warn("Initial ledger load failed", "error", err)
	}

	var snapshot *storage.SnapshotRepository
	if cfg.SQLiteDBPath != "" {
		snapshot, err = storage.NewSnapshotRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Warn("Failed to open snapshot database, continuing without it", "error", err, "path", cfg.SQLiteDBPath)
			snapshot = nil
		} else {
			defer snapshot.Close()
			if sess.Loaded() {
				if err := snapshot.Replace(ctx, sess.Transactions(), sess.Config()); err != nil {
					logger.Warn("Failed to write initial snapshot", "error", err)
				}
			}
		}
	}

	var adv *advisor.Client
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		adv, err = advisor.New(ctx, cfg.GenAIModel)
		if err != nil {
			logger.Warn("Failed to initialize advisor, continuing without it", "error", err)
			adv = nil
		}
	} else {
		logger.Info("Advisor disabled - no API key configured")
	}

	srv := apphttp.NewServer(":"+cfg.Port, sess, adv, snapshot)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
