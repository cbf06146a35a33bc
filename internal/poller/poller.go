package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	appfixtures "github.com/preston-bernstein/epl-fixtures-service/internal/app/fixtures"
	domainfixtures "github.com/preston-bernstein/epl-fixtures-service/internal/domain/fixtures"
	"github.com/preston-bernstein/epl-fixtures-service/internal/fetch"
	"github.com/preston-bernstein/epl-fixtures-service/internal/freshness"
	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
	"github.com/preston-bernstein/epl-fixtures-service/internal/metrics"
)

// Refresher brings fixture state up to date. force bypasses stale time.
type Refresher interface {
	Refresh(ctx context.Context, force bool) (appfixtures.State, error)
}

// Poller refreshes fixtures on a cadence chosen by the current activity tier.
// A single timer drives the loop; it is reset whenever the tier's interval
// changes.
type Poller struct {
	refresher Refresher
	policy    freshness.Policy
	logger    *slog.Logger
	metrics   *metrics.Recorder
	now       func() time.Time

	done       chan struct{}
	reschedule chan struct{}
	stopOnce   sync.Once
	startMu    sync.Mutex
	started    bool
	cancel     context.CancelFunc
	exited     chan struct{}

	statusMu sync.RWMutex
	status   Status
}

// Status describes the recent health and cadence of the poller loop.
type Status struct {
	ConsecutiveFailures int            `json:"consecutiveFailures"`
	LastError           string         `json:"lastError,omitempty"`
	LastAttempt         time.Time      `json:"lastAttempt"`
	LastSuccess         time.Time      `json:"lastSuccess"`
	Skipped             int            `json:"skipped"`
	Tier                freshness.Tier `json:"tier"`
	Interval            time.Duration  `json:"interval"`
	StaleTime           time.Duration  `json:"staleTime"`
}

// IsReady reports whether the poller has had a recent success and is not failing repeatedly.
func (s Status) IsReady() bool {
	if s.LastSuccess.IsZero() {
		return false
	}
	return s.ConsecutiveFailures < 3
}

// New constructs a Poller starting at the NORMAL cadence.
func New(refresher Refresher, policy freshness.Policy, logger *slog.Logger, recorder *metrics.Recorder) *Poller {
	p := &Poller{
		refresher:  refresher,
		policy:     policy.Normalize(),
		logger:     logger,
		metrics:    recorder,
		now:        time.Now,
		done:       make(chan struct{}),
		reschedule: make(chan struct{}, 1),
		exited:     make(chan struct{}),
	}
	p.status.Tier = freshness.TierNormal
	p.status.Interval = p.policy.RefetchIntervalAt(freshness.TierNormal, p.now())
	p.status.StaleTime = p.policy.StaleTimeAt(freshness.TierNormal, p.now())
	return p
}

// Start begins polling until the context is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.startMu.Lock()
	if p.started {
		p.startMu.Unlock()
		return
	}
	p.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.startMu.Unlock()

	go func() {
		defer close(p.exited)
		defer cancel()
		p.run(loopCtx)
	}()
}

func (p *Poller) run(ctx context.Context) {
	logging.Info(p.logger, "poller started", logging.FieldInterval, p.Interval().String())
	// Initial fetch to warm data on boot.
	p.tick(ctx)

	timer := time.NewTimer(p.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info(p.logger, "poller stopped")
			return
		case <-p.done:
			logging.Info(p.logger, "poller stopped")
			return
		case <-p.reschedule:
			resetTimer(timer, p.Interval())
		case <-timer.C:
			p.tick(ctx)
			timer.Reset(p.Interval())
		}
	}
}

// Stop halts the polling loop and cancels any refresh in progress. It waits
// for the loop to exit or ctx to end.
func (p *Poller) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		close(p.done)
	})

	p.startMu.Lock()
	started, cancel := p.started, p.cancel
	p.startMu.Unlock()
	if !started {
		return nil
	}
	cancel()

	select {
	case <-p.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh forces an immediate refresh outside the schedule, then reschedules
// the loop if the tier moved.
func (p *Poller) Refresh(ctx context.Context) (appfixtures.State, error) {
	start := p.now()
	p.recordAttempt(start)
	state, err := p.refresher.Refresh(ctx, true)
	p.metrics.RecordPollerCycle(time.Since(start), err)
	if err != nil {
		logging.Error(logging.FromContext(ctx, p.logger), "manual refresh failed", err)
		p.recordFailure(err, start)
		p.applyTier(freshness.TierNormal)
		return state, err
	}
	p.recordSuccess(start)
	p.applyTier(classify(state, p.now()))
	return state, nil
}

func (p *Poller) tick(ctx context.Context) {
	start := p.now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("poller panic: %v", r)
			logging.Error(p.logger, "poller tick panicked", err)
			p.recordFailure(err, start)
			p.applyTier(freshness.TierNormal)
		}
	}()

	p.recordAttempt(start)
	state, err := p.refresher.Refresh(ctx, false)
	p.metrics.RecordPollerCycle(time.Since(start), err)

	switch {
	case errors.Is(err, fetch.ErrInFlight):
		p.recordSkip()
		logging.Debug(p.logger, "poller tick skipped, fetch in flight")
		return
	case ctx.Err() != nil:
		return
	case err != nil:
		logging.Error(p.logger, "poller refresh failed", err, logging.FieldDurationMS, time.Since(start).Milliseconds())
		p.recordFailure(err, start)
		p.applyTier(freshness.TierNormal)
		return
	}

	p.recordSuccess(start)
	tier := classify(state, p.now())
	p.applyTier(tier)
	logging.Debug(p.logger, "poller refreshed fixtures",
		logging.FieldCount, len(state.Fixtures),
		logging.FieldTier, string(tier),
		logging.FieldOrigin, string(state.Origin),
		logging.FieldDurationMS, time.Since(start).Milliseconds(),
	)
}

func classify(state appfixtures.State, now time.Time) freshness.Tier {
	return freshness.Classify(domainfixtures.Unwrap(state.Fixtures), now)
}

// applyTier records the tier and its cadence, waking the loop when the
// interval changed.
func (p *Poller) applyTier(tier freshness.Tier) {
	now := p.now()
	interval := p.policy.RefetchIntervalAt(tier, now)
	stale := p.policy.StaleTimeAt(tier, now)

	p.statusMu.Lock()
	prevTier, prevInterval := p.status.Tier, p.status.Interval
	p.status.Tier = tier
	p.status.Interval = interval
	p.status.StaleTime = stale
	p.statusMu.Unlock()

	if prevTier != tier {
		p.metrics.RecordTierChange(string(prevTier), string(tier))
		logging.Info(p.logger, "freshness tier changed",
			"from", string(prevTier),
			logging.FieldTier, string(tier),
			logging.FieldInterval, interval.String(),
		)
	}
	if prevInterval != interval {
		select {
		case p.reschedule <- struct{}{}:
		default:
		}
	}
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}

func (p *Poller) recordAttempt(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastAttempt = at
}

func (p *Poller) recordSuccess(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	p.status.LastSuccess = at
}

func (p *Poller) recordFailure(err error, at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures++
	if err != nil {
		p.status.LastError = err.Error()
	}
	p.status.LastAttempt = at
}

func (p *Poller) recordSkip() {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.Skipped++
}

// Status returns a snapshot of the poller's recent health.
func (p *Poller) Status() Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}

// Tier returns the tier the current cadence is based on.
func (p *Poller) Tier() freshness.Tier {
	return p.Status().Tier
}

// Interval returns the delay until the next scheduled tick.
func (p *Poller) Interval() time.Duration {
	return p.Status().Interval
}
