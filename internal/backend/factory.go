package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/ledger/memory"
	"wealthtrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional: without it writes are simply not announced.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", "error", err)
			amqpClient = nil
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Store:     repo,
		Publisher: amqpClient,
		Cleanup: func() error {
			var errs []error
			if amqpClient != nil {
				if err := amqpClient.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close amqp client: %w", err))
				}
			}
			if err := repo.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close sqlite repository: %w", err))
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}
