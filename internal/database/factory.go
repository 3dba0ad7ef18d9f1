package database

import (
	"fmt"
	"path/filepath"

	"findex/internal/config"
	"findex/internal/findex"
)

// NewCatalogFromConfig creates a Catalog implementation based on the
// database config type. The sqlite catalog file is named after the
// host so several hosts can share one data directory.
func NewCatalogFromConfig(cfg config.DatabaseConfig, hostID string) (findex.Catalog, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		dbPath := filepath.Join(cfg.DataDir, hostID+".db")
		return NewSQLiteCatalog(dbPath)
	case "memory":
		return NewSQLiteCatalog(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
