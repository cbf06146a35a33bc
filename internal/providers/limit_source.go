package providers

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// rateLimitedSource spaces upstream calls at least interval apart. Callers
// that arrive early wait for their slot or for ctx to end.
type rateLimitedSource struct {
	next     Source
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	nextSlot time.Time
}

// NewRateLimitedSource returns a Source that enforces a minimum interval
// between calls. A non-positive interval returns next unchanged.
func NewRateLimitedSource(next Source, interval time.Duration, logger *slog.Logger) Source {
	if interval <= 0 {
		return next
	}
	return &rateLimitedSource{
		next:     next,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *rateLimitedSource) Fetch(ctx context.Context, req Request) (Response, error) {
	if s.next == nil {
		logFetch(ctx, s.logger, slog.LevelWarn, "rate-limited", req, "provider unavailable")
		return Response{}, ErrProviderUnavailable
	}

	wait := s.reserve()
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			logFetch(ctx, s.logger, slog.LevelWarn, "rate-limited", req, "rate-limited fetch canceled")
			return Response{}, ctx.Err()
		case <-timer.C:
		}
	}
	return s.next.Fetch(ctx, req)
}

func (s *rateLimitedSource) reserve() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	slot := s.nextSlot
	if slot.Before(now) {
		slot = now
	}
	s.nextSlot = slot.Add(s.interval)
	return slot.Sub(now)
}
