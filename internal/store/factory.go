package store

import (
	"context"
	"fmt"

	"findex/internal/config"
	"findex/internal/findex"
)

// NewStoreFromConfig creates the content store for the given config.
func NewStoreFromConfig(cfg config.StoreConfig) (findex.ContentStore, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("store requires root to be set")
	}
	return NewFileSystemStore(cfg.Root)
}

// NewMirrorFromConfig creates the optional content mirror. Returns
// (nil, nil) when no mirror is configured.
func NewMirrorFromConfig(ctx context.Context, cfg config.MirrorConfig) (findex.Mirror, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "s3":
		return NewS3Mirror(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown mirror type: %s", cfg.Type)
	}
}
