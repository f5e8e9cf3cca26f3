package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kasbook/internal/amqp"
	"kasbook/internal/config"
	"kasbook/internal/export"
	"kasbook/internal/export/google"
	"kasbook/internal/log"
	"kasbook/internal/storage"
	"kasbook/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{})
	log.SetDefault(logger)

	logger.Info("Starting kasbook-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sheets export is optional; without it the worker only snapshots
	var exporter export.RowAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.NewBackupWorker(repo, exporter, logger, cfg.BackupDir, cfg.BackupInterval, cfg.ExportBatchSize)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(ctx)
	})

	// consume ledger events for prompt incremental export when a bus is
	// configured; the ticker alone suffices without one
	if cfg.AMQPURL != "" {
		bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", log.FieldError, err)
			os.Exit(1)
		}
		defer bus.Close()

		g.Go(func() error {
			return bus.ConsumeLedgerEvents(ctx, func(ctx context.Context, ev *amqp.LedgerEvent) error {
				return w.HandleLedgerEvent(ctx, *ev)
			})
		})
		logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - relying on the ticker alone")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Stopped")
}
