package backend

import (
	"context"
	"fmt"

	"tendies/internal/log"
	"tendies/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the ledger named by config.Type. The memory backend is
// a private in-memory SQLite database and is lost on Cleanup.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	path := config.SQLiteDBPath
	if config.Type == MemoryBackend {
		path = storage.MemoryDSN
	}

	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", config.Type, err)
	}

	f.logger.InfoContext(ctx, "Initialized ledger backend", "type", config.Type.String(), "db_path", path)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}
