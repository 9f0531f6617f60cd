package storage

import (
	"fmt"

	"github.com/OCAP2/underwater/internal/config"
	gormstorage "github.com/OCAP2/underwater/internal/storage/gorm"
	"github.com/OCAP2/underwater/internal/storage/memory"

	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration. The caller
// must call Init before recording.
func NewBackend(cfg config.StorageConfig, logger zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		db, err := gormstorage.OpenPostgres(cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres journal: %w", err)
		}
		return gormstorage.New(db, logger), nil
	case "sqlite":
		db, err := gormstorage.OpenSQLite(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite journal: %w", err)
		}
		return gormstorage.New(db, logger), nil
	case "memory", "":
		return memory.New(memory.DefaultCapacity), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
