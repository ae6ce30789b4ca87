package backend

import (
	"context"

	"bizdash/internal/kvstore"
	"bizdash/internal/storage"
)

// ScopeLedger remembers which scopes were loaded. Only persistent backends keep one.
type ScopeLedger interface {
	RecordScopeLoad(ctx context.Context, scopeKey string, count int) error
	LoadedScopes(ctx context.Context) ([]storage.ScopeRecord, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult contains the store instance and optional cleanup function
type StoreResult struct {
	Store   kvstore.Store
	Ledger  ScopeLedger
	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *StoreResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates key/value stores based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
}

// Config holds configuration for store creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
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
