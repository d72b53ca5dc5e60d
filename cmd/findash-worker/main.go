package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"findash/internal/amqp"
	"findash/internal/backend"
	"findash/internal/config"
	"findash/internal/core"
	applog "findash/internal/log"
)

// findash-worker consumes transaction events from the AMQP queue and writes
// an audit trail. Created transactions are re-read from the store so the
// audit record carries the full details, not just the id.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting findash-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(event *amqp.TransactionEvent) error {
		switch event.Action {
		case amqp.ActionCreated:
			tx, err := result.Store.GetTransaction(ctx, event.ID)
			if err != nil {
				var nferr *core.NotFoundError
				if errors.As(err, &nferr) {
					// Deleted before we got to it; still worth the audit line
					logger.Warn("Created transaction no longer present",
						applog.FieldTxID, event.ID, "event_time", event.Timestamp)
					return nil
				}
				return err
			}
			logger.Info("Transaction created",
				applog.FieldTxID, tx.ID,
				"amount", tx.Amount.String(),
				applog.FieldCategory, string(tx.Category),
				applog.FieldTxType, string(tx.Type),
				"event_time", event.Timestamp)
		case amqp.ActionDeleted:
			logger.Info("Transaction deleted",
				applog.FieldTxID, event.ID, "event_time", event.Timestamp)
		}
		return nil
	}

	go func() {
		if err := amqpClient.ConsumeTransactionEvents(ctx, handler); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", "error", err)
			}
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
