package server

import (
	"log/slog"

	"github.com/preston-bernstein/epl-fixtures-service/internal/config"
	"github.com/preston-bernstein/epl-fixtures-service/internal/metrics"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
)

// providerFactory assembles the upstream source with shared wrappers (rate limit + retry).
type providerFactory struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func newProviderFactory(logger *slog.Logger, metrics *metrics.Recorder) providerFactory {
	return providerFactory{logger: logger, metrics: metrics}
}

func (f providerFactory) build(cfg config.Config) providers.Source {
	return f.wrap(cfg, selectSource(cfg, f.logger))
}

// wrap spaces calls by FPL_MIN_INTERVAL, then retries around the limiter so
// every attempt waits for its slot.
func (f providerFactory) wrap(cfg config.Config, base providers.Source) *providers.RetryingSource {
	limited := providers.NewRateLimitedSource(base, cfg.FPL.MinInterval, f.logger)
	return providers.NewRetryingSource(limited, f.logger, f.metrics, normalizeProviderName(cfg.Provider, base), providers.RetryConfig{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		BaseDelay:   cfg.Fetch.BackoffBase,
		MaxDelay:    cfg.Fetch.BackoffMax,
	})
}
