package main

import (
	"context"
	"errors"
	"os"
	"time"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/backend"
	"wealthtrack/internal/cli"
	"wealthtrack/internal/log"
	"wealthtrack/internal/services"
	"wealthtrack/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting wealth-worker")

	if cfg.DataBackend != backend.SQLiteBackend.String() {
		logger.Error("The worker needs the sqlite backend to share the ledger with the server", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to release backend", log.FieldError, err)
		}
	}()

	snapshotWorker := worker.NewSnapshotWorker(services.NewSnapshotService(result.Store))

	// On startup, make sure today has a reading
	if err := snapshotWorker.StartupSnapshot(ctx); err != nil {
		logger.Error("Startup snapshot failed", log.FieldError, err)
		// Don't exit - continue with normal operation
	}

	if err := snapshotWorker.StartSchedule(cfg.SnapshotSchedule); err != nil {
		logger.Error("Failed to start snapshot schedule", log.FieldError, err, "schedule", cfg.SnapshotSchedule)
		_ = result.Cleanup()
		os.Exit(1)
	}

	// Start message consumption only if AMQP is available
	if result.Publisher != nil {
		go consume(ctx, cancel, logger, result.Publisher, snapshotWorker)
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	<-ctx.Done()
	logger.Info("Shutting down worker...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	snapshotWorker.Stop(shutdownCtx)

	stats := snapshotWorker.Stats()
	logger.Info("Worker shutdown complete", "snapshots_taken", stats.Taken, "snapshots_failed", stats.Failed)
}

func consume(ctx context.Context, cancel context.CancelFunc, logger *log.Logger, client *amqp.Client, w *worker.SnapshotWorker) {
	if err := client.ConsumeLedgerChanges(ctx, w.HandleLedgerChange); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
		cancel()
	}
}
