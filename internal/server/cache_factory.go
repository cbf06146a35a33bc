package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/preston-bernstein/epl-fixtures-service/internal/cache"
	"github.com/preston-bernstein/epl-fixtures-service/internal/config"
	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
)

var openCache = cache.Open

// buildCache opens the configured backend. A backend that cannot be opened
// degrades to memory so the service still starts.
func buildCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) cache.Store {
	opts := cache.Options{MaxBytes: cfg.MaxBytes}
	store, err := openCache(ctx, cfg.Backend, cfg.Path, opts)
	if err != nil {
		logging.Error(logger, "cache open failed, using memory", err,
			"backend", cfg.Backend,
			logging.FieldPath, cfg.Path,
		)
		return cache.NewMemoryStore(opts)
	}
	logging.Info(logger, "cache opened", "backend", cfg.Backend, logging.FieldPath, cfg.Path)
	return store
}

// runCacheCleanup drops entries older than maxAge every interval until ctx ends.
func runCacheCleanup(ctx context.Context, store cache.Store, interval, maxAge time.Duration, logger *slog.Logger) {
	if store == nil || interval <= 0 || maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanupOnce(ctx, store, maxAge, logger)
		}
	}
}

func cleanupOnce(ctx context.Context, store cache.Store, maxAge time.Duration, logger *slog.Logger) int {
	removed, err := store.Cleanup(ctx, maxAge)
	if err != nil {
		logging.Warn(logger, "cache cleanup failed", logging.FieldError, err)
		return 0
	}
	if removed > 0 {
		logging.Info(logger, "cache cleanup removed entries", logging.FieldCount, removed)
	}
	return removed
}
