// Package cli provides the startup steps shared by cmd/wealthtrack and
// cmd/wealth-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"wealthtrack/internal/backend"
	"wealthtrack/internal/config"
	"wealthtrack/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the configured level and installs
// it as the slog default. An unknown level falls back to info with a warning.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: component, Output: os.Stdout})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Invalid log level, using info", log.FieldError, err)
	}
	return logger
}

// LoadAndValidateConfig loads the environment and the configuration, and sets
// up logging. It exits the process when the configuration is invalid.
func LoadAndValidateConfig(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenBackend creates the configured store, and the AMQP client when one is
// configured.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend configuration: %w", err)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize %s backend: %w", cfg.DataBackend, err)
	}
	return result, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
