// Package backend builds the ledger store selected by configuration.
package backend

import (
	"context"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/ledger"
	"wealthtrack/internal/services"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult is a ready store plus the optional change publisher that
// goes with it. Publisher is nil when AMQP is not configured or unreachable.
type BackendResult struct {
	Store     ledger.Store
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// ChangePublisher returns the publisher as an interface value, nil when AMQP
// is disabled.
func (r *BackendResult) ChangePublisher() services.Publisher {
	if r.Publisher == nil {
		return nil
	}
	return r.Publisher
}
