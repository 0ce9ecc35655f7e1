package backup

import (
	"context"
	"fmt"

	"files-kraken/core/storage"

	"go.uber.org/zap"
)

// Config selects where snapshots are kept.
type Config struct {
	// Backend is "file", "object" or "none".
	Backend string `mapstructure:"backend" default:"file"`
	// Dir holds backup files for the file backend.
	Dir string `mapstructure:"dir" default:".files-kraken/backups"`
	// Prefix is prepended to object keys for the object backend.
	Prefix string `mapstructure:"prefix" default:"backups"`
}

// Open builds the configured store. It returns nil for the "none" backend.
func Open(ctx context.Context, cfg Config, storageCfg storage.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir, logger), nil
	case "object":
		client, err := storage.NewClient(storageCfg)
		if err != nil {
			return nil, err
		}
		if err := storage.EnsureBucket(ctx, client, storageCfg.Bucket, storageCfg.Region); err != nil {
			return nil, err
		}
		return NewObjectStore(client, storageCfg.Bucket, cfg.Prefix, logger), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported backup backend: %s", cfg.Backend)
	}
}
