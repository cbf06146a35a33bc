// Package fetch coordinates upstream requests with the cache and the bundled
// snapshot. A fetch never fails while any copy of the data exists: fresh
// network data wins, then a revalidated cache entry, then a stale cache entry,
// then the embedded snapshot.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/preston-bernstein/epl-fixtures-service/internal/cache"
	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
	"github.com/preston-bernstein/epl-fixtures-service/internal/metrics"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
)

// Origin says where a Result's data came from.
type Origin string

const (
	OriginNetwork     Origin = "network"
	OriginNotModified Origin = "not_modified"
	OriginCache       Origin = "cache"
	OriginSnapshot    Origin = "snapshot"
)

var (
	// ErrUnavailable is returned when the network failed and neither the cache
	// nor the bundled snapshot has the key.
	ErrUnavailable = errors.New("data unavailable")
	// ErrInFlight is returned by TryFetch while a fetch for the key is outstanding.
	ErrInFlight = errors.New("fetch already in flight")
)

// Result is the outcome of a fetch. Data is shared between coalesced callers
// and must be treated as read-only.
type Result struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"-"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Origin    Origin          `json:"origin"`
	Stale     bool            `json:"stale"`
	// Cause is the network error that forced a fallback, if any.
	Cause error `json:"-"`
}

// Snapshots provides last-resort payloads by key.
type Snapshots interface {
	Lookup(key string) (json.RawMessage, bool)
}

// DefaultFetchTimeout bounds one shared fetch, retries included.
const DefaultFetchTimeout = 2 * time.Minute

// Orchestrator runs the fetch algorithm for resource keys.
type Orchestrator struct {
	source    providers.Source
	store     cache.Store
	snapshots Snapshots
	logger    *slog.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
	timeout   time.Duration

	group    singleflight.Group
	mu       sync.Mutex
	inflight map[string]int
}

// New constructs an Orchestrator. snapshots may be nil.
func New(source providers.Source, store cache.Store, snapshots Snapshots, logger *slog.Logger, recorder *metrics.Recorder) *Orchestrator {
	if store == nil {
		store = cache.NewMemoryStore(cache.Options{})
	}
	return &Orchestrator{
		source:    source,
		store:     store,
		snapshots: snapshots,
		logger:    logger,
		metrics:   recorder,
		now:       time.Now,
		timeout:   DefaultFetchTimeout,
		inflight:  make(map[string]int),
	}
}

// Fetch returns data for key, going to the network once per concurrent burst
// of callers. The shared fetch outlives any single caller; each caller stops
// waiting when its own ctx is done.
func (o *Orchestrator) Fetch(ctx context.Context, key string) (Result, error) {
	ch := o.group.DoChan(key, func() (any, error) {
		o.markInFlight(key)
		defer o.clearInFlight(key)
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
		defer cancel()
		return o.fetch(fctx, key)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

// TryFetch is Fetch that refuses to wait: when a fetch for key is already
// outstanding it returns ErrInFlight immediately.
func (o *Orchestrator) TryFetch(ctx context.Context, key string) (Result, error) {
	if o.InFlight(key) {
		return Result{}, ErrInFlight
	}
	return o.Fetch(ctx, key)
}

// InFlight reports whether a network fetch for key is outstanding.
func (o *Orchestrator) InFlight(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight[key] > 0
}

// Cached returns the cached entry for key when it is younger than maxAge,
// without touching the network.
func (o *Orchestrator) Cached(ctx context.Context, key string, maxAge time.Duration) (Result, bool) {
	entry, ok := o.lookup(ctx, key)
	if !ok || maxAge <= 0 || entry.Age(o.now()) >= maxAge {
		return Result{}, false
	}
	return resultFrom(entry, OriginCache, false), true
}

// Peek returns whatever is cached for key regardless of age.
func (o *Orchestrator) Peek(ctx context.Context, key string) (Result, bool) {
	entry, ok := o.lookup(ctx, key)
	if !ok {
		return Result{}, false
	}
	return resultFrom(entry, OriginCache, false), true
}

func (o *Orchestrator) fetch(ctx context.Context, key string) (Result, error) {
	start := o.now()
	entry, hasEntry := o.lookup(ctx, key)

	req := providers.Request{Key: key}
	if hasEntry && entry.HasValidators() {
		req.IfNoneMatch = entry.ETag
		req.IfModifiedSince = entry.LastModified
	}

	var (
		resp providers.Response
		err  error
	)
	if o.source == nil {
		err = providers.ErrProviderUnavailable
	} else {
		resp, err = o.source.Fetch(ctx, req)
	}

	if err == nil {
		switch {
		case resp.NotModified() && hasEntry:
			entry.FetchedAt = o.now()
			if resp.ETag != "" {
				entry.ETag = resp.ETag
			}
			if resp.LastModified != "" {
				entry.LastModified = resp.LastModified
			}
			o.persist(ctx, entry)
			return o.finish(key, resultFrom(entry, OriginNotModified, false), start), nil
		case resp.NotModified():
			err = fmt.Errorf("%s: not modified without a cached entry", key)
		case !json.Valid(resp.Body):
			err = fmt.Errorf("%s: upstream payload is not valid JSON", key)
		default:
			entry = cache.Entry{
				Key:          key,
				Data:         resp.Body,
				FetchedAt:    o.now(),
				ETag:         resp.ETag,
				LastModified: resp.LastModified,
			}
			o.persist(ctx, entry)
			return o.finish(key, resultFrom(entry, OriginNetwork, false), start), nil
		}
	}

	if errors.Is(err, context.Canceled) {
		return Result{}, err
	}
	return o.fallback(ctx, key, entry, hasEntry, err, start)
}

func (o *Orchestrator) fallback(ctx context.Context, key string, entry cache.Entry, hasEntry bool, cause error, start time.Time) (Result, error) {
	logger := logging.FromContext(ctx, o.logger)
	if hasEntry {
		logging.Warn(logger, "stale data served",
			logging.FieldKey, key,
			logging.FieldAgeMS, entry.Age(o.now()).Milliseconds(),
			logging.FieldError, cause,
		)
		res := resultFrom(entry, OriginCache, true)
		res.Cause = cause
		return o.finish(key, res, start), nil
	}
	if o.snapshots != nil {
		if data, ok := o.snapshots.Lookup(key); ok {
			logging.Warn(logger, "bundled snapshot served",
				logging.FieldKey, key,
				logging.FieldError, cause,
			)
			res := Result{Key: key, Data: data, Origin: OriginSnapshot, Stale: true, Cause: cause}
			return o.finish(key, res, start), nil
		}
	}
	logging.Error(logger, "fetch unavailable", cause, logging.FieldKey, key)
	return Result{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, key, cause)
}

func (o *Orchestrator) finish(key string, res Result, start time.Time) Result {
	o.metrics.RecordFetchOrigin(key, string(res.Origin))
	logging.Debug(o.logger, "fetch completed",
		logging.FieldKey, key,
		logging.FieldOrigin, string(res.Origin),
		logging.FieldDurationMS, o.now().Sub(start).Milliseconds(),
	)
	return res
}

// lookup reads the cache, treating corrupt entries and read errors as misses.
func (o *Orchestrator) lookup(ctx context.Context, key string) (cache.Entry, bool) {
	entry, ok, err := o.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrCorrupt) {
			logging.Warn(o.logger, "corrupt cache entry dropped", logging.FieldKey, key)
		} else {
			logging.Warn(o.logger, "cache read failed", logging.FieldKey, key, logging.FieldError, err)
		}
		return cache.Entry{}, false
	}
	return entry, ok
}

func (o *Orchestrator) persist(ctx context.Context, entry cache.Entry) {
	// A canceled caller must not lose a completed response.
	if err := o.store.Put(context.WithoutCancel(ctx), entry); err != nil {
		logging.Warn(o.logger, "cache write failed", logging.FieldKey, entry.Key, logging.FieldError, err)
	}
}

func (o *Orchestrator) markInFlight(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inflight[key]++
}

func (o *Orchestrator) clearInFlight(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[key] <= 1 {
		delete(o.inflight, key)
		return
	}
	o.inflight[key]--
}

func resultFrom(entry cache.Entry, origin Origin, stale bool) Result {
	return Result{
		Key:       entry.Key,
		Data:      entry.Data,
		FetchedAt: entry.FetchedAt,
		Origin:    origin,
		Stale:     stale,
	}
}
