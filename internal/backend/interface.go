package backend

import (
	"context"

	"tendies/internal/ledger"
)

// CleanupFunc releases whatever a backend holds open.
type CleanupFunc func() error

// BackendResult is an opened ledger plus its cleanup.
type BackendResult struct {
	Store   ledger.Store
	Cleanup CleanupFunc
}

// Factory opens ledger stores from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
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
