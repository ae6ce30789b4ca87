package backend

import (
	"context"
	"fmt"

	"bizdash/internal/kvstore"
	"bizdash/internal/log"
	"bizdash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(_ context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteStore(config)
	case MemoryBackend:
		return f.createMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteStore(config Config) (*StoreResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger.WithComponent(log.ComponentStorage))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)

	return &StoreResult{
		Store:   repo,
		Ledger:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryStore() (*StoreResult, error) {
	f.logger.Info("Initialized memory store")

	return &StoreResult{
		Store: kvstore.NewMemory(),
	}, nil
}
