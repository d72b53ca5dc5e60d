// Package backend selects and constructs the ledger store implementation
// from configuration.
package backend

import (
	"fmt"

	"findash/internal/config"
	"findash/internal/ledger"
	"findash/internal/ledger/memory"
	"findash/internal/log"
	"findash/internal/storage"
)

type Type string

const (
	MemoryBackend Type = "memory"
	SQLiteBackend Type = "sqlite"
)

func (t Type) IsValid() bool {
	return t == MemoryBackend || t == SQLiteBackend
}

// Result carries the constructed store and an optional cleanup function.
type Result struct {
	Store   ledger.Store
	Cleanup func() error
}

// Factory builds stores. Kept as a struct so a logger can be injected.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.Config{})
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateStore builds the store named by cfg.DataBackend.
func (f *Factory) CreateStore(cfg *config.Config) (*Result, error) {
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch t {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return &Result{Store: memory.New()}, nil
	}

	return nil, fmt.Errorf("unsupported backend type: %s", t)
}
