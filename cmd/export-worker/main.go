package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/amqp"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/cache"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/config"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/log"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/services"
	gsheet "github.com/raul-d-souza/hub-de-reformas-sub001/internal/sheets/google"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/storage"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/worker"
)

const (
	exportedCacheSize = 10000
	exportedCacheTTL  = 24 * time.Hour
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	logger.Info("Starting export-worker")

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite store", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	exporter, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exported := cache.NewLRU[struct{}](exportedCacheSize, exportedCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(exported)
	caches.Start(ctx, exportedCacheTTL/4)
	defer caches.Wait()

	summaries := services.NewAggregator(store, store, store, logger)
	w := worker.NewExportWorker(store, summaries, exporter, logger).WithDedupe(exported)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := client.ConsumeEvents(ctx, w.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption failed", log.FieldError, err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...", "timeout", cfg.ShutdownTimeout)
	cancel()

	select {
	case <-done:
		logger.Info("Worker shutdown complete")
	case <-time.After(cfg.ShutdownTimeout):
		logger.Warn("Shutdown timeout reached")
	}
}
