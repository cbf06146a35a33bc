package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/preston-bernstein/epl-fixtures-service/internal/changes"
	domainfixtures "github.com/preston-bernstein/epl-fixtures-service/internal/domain/fixtures"
	"github.com/preston-bernstein/epl-fixtures-service/internal/fetch"
	"github.com/preston-bernstein/epl-fixtures-service/internal/freshness"
	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers/fpl"
)

// ErrNotLoaded reports that a resource has no data yet.
var ErrNotLoaded = errors.New("fixtures not loaded")

// Fetcher is the part of the fetch orchestrator the service depends on.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (fetch.Result, error)
	TryFetch(ctx context.Context, key string) (fetch.Result, error)
	Cached(ctx context.Context, key string, maxAge time.Duration) (fetch.Result, bool)
	Peek(ctx context.Context, key string) (fetch.Result, bool)
}

// State is the materialized fixture data. Slices are shared with other
// readers and must not be modified.
type State struct {
	Fixtures    []domainfixtures.FixtureWithTeams `json:"fixtures"`
	Teams       []domainfixtures.Team             `json:"teams"`
	Gameweeks   []domainfixtures.Gameweek         `json:"gameweeks"`
	Version     uint64                            `json:"version"`
	Fingerprint string                            `json:"fingerprint"`
	FetchedAt   time.Time                         `json:"fetchedAt"`
	UpdatedAt   time.Time                         `json:"updatedAt"`
	Origin      fetch.Origin                      `json:"origin"`
	Stale       bool                              `json:"stale"`
}

// Loaded reports whether any fixture payload has been applied.
func (s State) Loaded() bool {
	return s.Version > 0
}

// Service owns the current fixture state and refreshes it through the
// orchestrator. Subscribers hear about a new state only when it changed.
type Service struct {
	fetcher Fetcher
	policy  freshness.Policy
	logger  *slog.Logger
	now     func() time.Time

	mu           sync.RWMutex
	raw          []domainfixtures.Fixture
	bootstrapRaw json.RawMessage
	state        State

	subsMu sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// NewService constructs a Service.
func NewService(fetcher Fetcher, policy freshness.Policy, logger *slog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		policy:  policy.Normalize(),
		logger:  logger,
		now:     time.Now,
		subs:    make(map[int]func(State)),
	}
}

// Hydrate loads whatever the cache holds without touching the network, so the
// service can answer before the first poll completes.
func (s *Service) Hydrate(ctx context.Context) bool {
	fixturesRes, ok := s.fetcher.Peek(ctx, providers.KeyFixtures)
	if !ok {
		return false
	}
	if decoded, err := fpl.DecodeFixtures(fixturesRes.Data); err == nil {
		now := s.now()
		maxAge := s.policy.StaleTimeAt(freshness.Classify(decoded, now), now)
		fixturesRes.Stale = fixturesRes.FetchedAt.IsZero() || now.Sub(fixturesRes.FetchedAt) >= maxAge
	}
	bootstrapRes, bootOK := s.fetcher.Peek(ctx, providers.KeyBootstrap)
	var bootErr error
	if !bootOK {
		bootErr = ErrNotLoaded
	}
	if _, err := s.applyResults(ctx, fixturesRes, bootstrapRes, bootErr); err != nil {
		logging.Warn(s.logger, "cache hydrate failed", logging.FieldError, err)
		return false
	}
	logging.Info(s.logger, "fixtures hydrated from cache", logging.FieldCount, len(s.Snapshot().Fixtures))
	return true
}

// Refresh brings the state up to date. Without force it is a scheduled poll:
// fixtures fetched within half the current tier's refetch interval are reused
// and a fetch already in flight makes Refresh return fetch.ErrInFlight. With
// force, the network is always asked.
func (s *Service) Refresh(ctx context.Context, force bool) (State, error) {
	now := s.now()
	fixturesMaxAge := s.pollMaxAge(s.Tier(now), now)
	bootstrapMaxAge := s.policy.StaleTimeAt(freshness.TierNormal, now)

	var (
		fixturesRes  fetch.Result
		bootstrapRes fetch.Result
		bootErr      error
	)
	// Neither load may cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		res, err := s.load(ctx, providers.KeyFixtures, fixturesMaxAge, force)
		if err != nil {
			return err
		}
		fixturesRes = res
		return nil
	})
	g.Go(func() error {
		bootstrapRes, bootErr = s.load(ctx, providers.KeyBootstrap, bootstrapMaxAge, force)
		return nil
	})
	if err := g.Wait(); err != nil {
		return s.Snapshot(), err
	}
	if err := ctx.Err(); err != nil {
		return s.Snapshot(), err
	}
	if bootErr != nil && !errors.Is(bootErr, fetch.ErrInFlight) {
		logging.Warn(s.logger, "bootstrap refresh failed, keeping previous teams", logging.FieldKey, providers.KeyBootstrap, logging.FieldError, bootErr)
	}
	return s.applyResults(ctx, fixturesRes, bootstrapRes, bootErr)
}

// pollMaxAge is the age past which a scheduled poll goes to the network. Half
// the refetch interval lets a poll reuse a manual refresh made just before it
// but never the previous poll's data.
func (s *Service) pollMaxAge(tier freshness.Tier, now time.Time) time.Duration {
	maxAge := s.policy.RefetchIntervalAt(tier, now) / 2
	if stale := s.policy.StaleTimeAt(tier, now); stale < maxAge {
		return stale
	}
	return maxAge
}

func (s *Service) load(ctx context.Context, key string, maxAge time.Duration, force bool) (fetch.Result, error) {
	if force {
		return s.fetcher.Fetch(ctx, key)
	}
	if res, ok := s.fetcher.Cached(ctx, key, maxAge); ok {
		return res, nil
	}
	return s.fetcher.TryFetch(ctx, key)
}

func (s *Service) applyResults(ctx context.Context, fixturesRes, bootstrapRes fetch.Result, bootErr error) (State, error) {
	decoded, err := fpl.DecodeFixtures(fixturesRes.Data)
	if err != nil {
		return s.Snapshot(), fmt.Errorf("%s: %w", providers.KeyFixtures, err)
	}

	var boot *domainfixtures.Bootstrap
	if bootErr == nil {
		b, err := fpl.DecodeBootstrap(bootstrapRes.Data)
		if err != nil {
			logging.Warn(s.logger, "bootstrap payload rejected", logging.FieldKey, providers.KeyBootstrap, logging.FieldError, err)
		} else {
			boot = &b
		}
	}

	state, changed := s.apply(decoded, boot, bootstrapRes.Data, fixturesRes)
	if changed {
		logging.Info(logging.FromContext(ctx, s.logger), "fixtures updated",
			logging.FieldCount, len(state.Fixtures),
			logging.FieldOrigin, string(state.Origin),
			"version", state.Version,
		)
		s.publish(state)
	}
	return state, nil
}

func (s *Service) apply(decoded []domainfixtures.Fixture, boot *domainfixtures.Bootstrap, bootRaw json.RawMessage, res fetch.Result) (State, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// A slow refresh finishing after a newer one must not roll the state back.
	if s.state.Loaded() && res.FetchedAt.Before(s.state.FetchedAt) {
		return s.state, false
	}

	shared, changed := changes.Share(s.raw, decoded)
	if boot != nil && (s.bootstrapRaw == nil || !changes.SameContent(s.bootstrapRaw, bootRaw)) {
		s.bootstrapRaw = bootRaw
		s.state.Teams = boot.Teams
		s.state.Gameweeks = boot.Gameweeks
		changed = true
	}
	if changed {
		s.raw = shared
		s.state.Fixtures = domainfixtures.JoinTeams(shared, s.state.Teams)
		s.state.Version++
		s.state.UpdatedAt = now
		if fp, err := changes.Fingerprint(s.state.Fixtures); err == nil {
			s.state.Fingerprint = fp
		}
	}
	s.state.FetchedAt = res.FetchedAt
	s.state.Origin = res.Origin
	s.state.Stale = res.Stale
	return s.state, changed
}

// Subscribe registers fn to receive every changed state. The returned func
// removes it.
func (s *Service) Subscribe(fn func(State)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Service) publish(state State) {
	s.subsMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Snapshot returns the current state.
func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Fixtures returns the current fixtures joined with team names.
func (s *Service) Fixtures() []domainfixtures.FixtureWithTeams {
	return s.Snapshot().Fixtures
}

// FixtureByID returns a single fixture if present.
func (s *Service) FixtureByID(id int) (domainfixtures.FixtureWithTeams, bool) {
	for _, f := range s.Fixtures() {
		if f.ID == id {
			return f, true
		}
	}
	return domainfixtures.FixtureWithTeams{}, false
}

// FixturesInGameweek returns the fixtures of one gameweek, in stored order.
func (s *Service) FixturesInGameweek(gameweek int) []domainfixtures.FixtureWithTeams {
	all := s.Fixtures()
	out := make([]domainfixtures.FixtureWithTeams, 0)
	for _, f := range all {
		if f.Gameweek != nil && *f.Gameweek == gameweek {
			out = append(out, f)
		}
	}
	return out
}

// GameweekFixtures returns one gameweek's fixtures from its own upstream
// resource, reusing a cached copy within the current stale time. When that
// resource cannot be loaded, or only stale data exists while the full list is
// loaded, the full list is filtered instead.
func (s *Service) GameweekFixtures(ctx context.Context, gameweek int) []domainfixtures.FixtureWithTeams {
	key := providers.GameweekKey(gameweek)
	logger := logging.FromContext(ctx, s.logger)
	now := s.now()

	res, ok := s.fetcher.Cached(ctx, key, s.policy.StaleTimeAt(s.Tier(now), now))
	if !ok {
		var err error
		res, err = s.fetcher.Fetch(ctx, key)
		if err != nil {
			logging.Warn(logger, "gameweek fetch failed, filtering full list", logging.FieldKey, key, logging.FieldError, err)
			return s.FixturesInGameweek(gameweek)
		}
	}
	if res.Stale && s.Snapshot().Loaded() {
		return s.FixturesInGameweek(gameweek)
	}
	decoded, err := fpl.DecodeFixtures(res.Data)
	if err != nil {
		logging.Warn(logger, "gameweek payload rejected", logging.FieldKey, key, logging.FieldError, err)
		return s.FixturesInGameweek(gameweek)
	}
	return domainfixtures.JoinTeams(decoded, s.Teams())
}

// Teams returns the known teams.
func (s *Service) Teams() []domainfixtures.Team {
	return s.Snapshot().Teams
}

// Gameweeks returns the known gameweeks.
func (s *Service) Gameweeks() []domainfixtures.Gameweek {
	return s.Snapshot().Gameweeks
}

// Tier classifies the current fixtures at now.
func (s *Service) Tier(now time.Time) freshness.Tier {
	return s.Summary(now).Tier
}

// Summary explains the current tier at now.
func (s *Service) Summary(now time.Time) freshness.Summary {
	s.mu.RLock()
	raw := s.raw
	s.mu.RUnlock()
	return freshness.Summarize(raw, now)
}

// Policy returns the normalized freshness policy in use.
func (s *Service) Policy() freshness.Policy {
	return s.policy
}
