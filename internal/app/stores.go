package app

import (
	"fmt"

	"unchained/internal/cache/artifact"
	"unchained/internal/cache/disk"
	"unchained/internal/config"
)

func newDiskStore(cfg *config.Config) (artifact.Store, error) {
	store, err := disk.NewStore(disk.Config{
		Root:       cfg.Cache.Dir,
		MaxEntries: cfg.Cache.MaxEntries,
		MaxBytes:   int64(cfg.Cache.MaxBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize disk cache: %w", err)
	}
	return store, nil
}
