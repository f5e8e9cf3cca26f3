package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kasbook/internal/access"
	"kasbook/internal/amqp"
	"kasbook/internal/bot"
	"kasbook/internal/config"
	"kasbook/internal/ledger"
	"kasbook/internal/log"
	"kasbook/internal/report"
	"kasbook/internal/session"
	"kasbook/internal/storage"
)

func main() {
	// .env is for local development; absence is fine in production
	_ = godotenv.Load()

	logger := log.New(log.Config{})
	log.SetDefault(logger)

	logger.Info("Starting kasbook")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	loc := cfg.Location()

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// ledger event bus is optional; without it writes simply skip publishing
	var bus *amqp.Client
	if cfg.AMQPURL != "" {
		bus, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", log.FieldError, err)
			os.Exit(1)
		}
		defer bus.Close()
		logger.Info("AMQP connected", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	controller := access.NewController(repo, cfg.AdminChatID, cfg.AdminUsername)
	resolver := access.NewResolver(repo, cfg.AdminChatID)
	cats := ledger.NewCategoryService(repo)
	txs := ledger.NewTransactionService(repo, cats, bus)
	reports := report.NewEngine(repo)
	machine := session.NewMachine(session.NewStore(), cats, txs, loc)

	router := bot.NewRouter(logger, controller, resolver, cats, txs, reports, machine, loc)
	srv := bot.NewServer(cfg.HTTPAddr, router, logger)

	go func() {
		logger.Info("Listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Stopped")
}
