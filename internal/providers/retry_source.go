package providers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
)

const (
	defaultRetryAttempts = 3
	defaultBaseDelay     = time.Second
	defaultMaxDelay      = 30 * time.Second
)

// RetryConfig bounds retries. Delays grow as base * 2^attempt up to MaxDelay.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultRetryAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	return c
}

// AttemptRecorder receives one observation per upstream attempt.
type AttemptRecorder interface {
	RecordProviderAttempt(provider string, duration time.Duration, err error)
	RecordRateLimit(provider string, retryAfter time.Duration)
}

// RetryingSource wraps a Source with exponential backoff. 4xx responses other
// than 429 fail immediately; a 429 Retry-After stretches the next delay.
type RetryingSource struct {
	inner   Source
	logger  *slog.Logger
	metrics AttemptRecorder
	name    string
	cfg     RetryConfig
}

// NewRetryingSource wraps inner with retries. Zero config values use defaults.
func NewRetryingSource(inner Source, logger *slog.Logger, recorder AttemptRecorder, name string, cfg RetryConfig) *RetryingSource {
	return &RetryingSource{
		inner:   inner,
		logger:  logger,
		metrics: recorder,
		name:    name,
		cfg:     cfg.withDefaults(),
	}
}

// Config returns the effective retry configuration.
func (r *RetryingSource) Config() RetryConfig {
	return r.cfg
}

func (r *RetryingSource) Fetch(ctx context.Context, req Request) (Response, error) {
	if r == nil || r.inner == nil {
		return Response{}, ErrProviderUnavailable
	}

	hinted := &retryAfterBackOff{BackOff: r.newBackOff(), max: r.cfg.MaxDelay}
	policy := backoff.WithContext(backoff.WithMaxRetries(hinted, uint64(r.cfg.MaxAttempts-1)), ctx)

	attempt := 0
	op := func() (Response, error) {
		attempt++
		start := time.Now()
		resp, err := r.inner.Fetch(ctx, req)
		r.recordAttempt(time.Since(start), err)
		if err == nil {
			return resp, nil
		}
		if upErr, ok := AsUpstreamError(err); ok && upErr.RateLimited() {
			r.recordRateLimit(upErr.RetryAfter)
			hinted.hint = upErr.RetryAfter
		}
		if !IsRetryable(err) {
			return Response{}, backoff.Permanent(err)
		}
		return Response{}, err
	}
	notify := func(err error, delay time.Duration) {
		logFetch(ctx, r.logger, slog.LevelWarn, r.name, req, "upstream fetch retry",
			logging.FieldAttempt, attempt,
			logging.FieldAttempts, r.cfg.MaxAttempts,
			logging.FieldDurationMS, delay.Milliseconds(),
			logging.FieldError, err,
		)
	}

	resp, err := backoff.RetryNotifyWithData(op, policy, notify)
	if err != nil {
		logFetch(ctx, r.logger, slog.LevelWarn, r.name, req, "upstream fetch failed",
			logging.FieldAttempts, attempt,
			logging.FieldError, err,
		)
		return Response{}, fmt.Errorf("%s failed after %d attempts: %w", req.Key, attempt, err)
	}
	return resp, nil
}

func (r *RetryingSource) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = r.cfg.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (r *RetryingSource) recordAttempt(d time.Duration, err error) {
	if r.metrics != nil {
		r.metrics.RecordProviderAttempt(r.name, d, err)
	}
}

func (r *RetryingSource) recordRateLimit(retryAfter time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordRateLimit(r.name, retryAfter)
	}
}

// retryAfterBackOff lets a server-provided Retry-After lengthen the next
// computed delay, bounded by max.
type retryAfterBackOff struct {
	backoff.BackOff
	hint time.Duration
	max  time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.hint > next {
		next = b.hint
		if b.max > 0 && next > b.max {
			next = b.max
		}
	}
	b.hint = 0
	return next
}

func (b *retryAfterBackOff) Reset() {
	b.hint = 0
	b.BackOff.Reset()
}
