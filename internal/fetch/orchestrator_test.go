package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/preston-bernstein/epl-fixtures-service/internal/cache"
	"github.com/preston-bernstein/epl-fixtures-service/internal/metrics"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers/bundled"
)

var now = time.Date(2024, 8, 17, 12, 0, 0, 0, time.UTC)

var fastRetry = providers.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func newOrchestrator(src providers.Source, store cache.Store, snaps Snapshots) *Orchestrator {
	o := New(src, store, snaps, nil, metrics.NewRecorder())
	o.now = func() time.Time { return now }
	return o
}

func seed(t *testing.T, store cache.Store, e cache.Entry) {
	t.Helper()
	if err := store.Put(context.Background(), e); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
}

func failingSource(calls *int32, err error) providers.Source {
	return providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		atomic.AddInt32(calls, 1)
		return providers.Response{}, err
	})
}

func TestFetchNetworkSuccessWritesCache(t *testing.T) {
	store := cache.NewMemoryStore(cache.Options{})
	src := providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		if req.IfNoneMatch != "" {
			t.Fatalf("expected no validators without cache entry")
		}
		return providers.Response{StatusCode: http.StatusOK, Body: []byte(`[{"id":1}]`), ETag: `"v1"`}, nil
	})
	o := newOrchestrator(src, store, nil)

	res, err := o.Fetch(context.Background(), providers.KeyFixtures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Origin != OriginNetwork || res.Stale || string(res.Data) != `[{"id":1}]` || !res.FetchedAt.Equal(now) {
		t.Fatalf("unexpected result %+v", res)
	}
	entry, ok, _ := store.Get(context.Background(), providers.KeyFixtures)
	if !ok || entry.ETag != `"v1"` || string(entry.Data) != `[{"id":1}]` {
		t.Fatalf("expected cache entry replaced, got %+v", entry)
	}
	if o.metrics.FetchOrigins(string(OriginNetwork)) != 1 {
		t.Fatalf("expected network origin recorded")
	}
}

func TestFetchNotModifiedKeepsCachedPayload(t *testing.T) {
	store := cache.NewMemoryStore(cache.Options{})
	cached := cache.Entry{
		Key:          providers.KeyFixtures,
		Data:         json.RawMessage(`[{"id":1,"team_h":1}]`),
		FetchedAt:    now.Add(-time.Hour),
		ETag:         `"v1"`,
		LastModified: "Sat, 17 Aug 2024 11:00:00 GMT",
	}
	seed(t, store, cached)

	var gotReq providers.Request
	src := providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		gotReq = req
		return providers.Response{StatusCode: http.StatusNotModified}, nil
	})
	o := newOrchestrator(src, store, nil)

	res, err := o.Fetch(context.Background(), providers.KeyFixtures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotReq.IfNoneMatch != `"v1"` || gotReq.IfModifiedSince != cached.LastModified {
		t.Fatalf("expected conditional request, got %+v", gotReq)
	}
	if res.Origin != OriginNotModified || res.Stale {
		t.Fatalf("unexpected result %+v", res)
	}
	if string(res.Data) != string(cached.Data) {
		t.Fatalf("expected cached payload unchanged, got %s", res.Data)
	}
	entry, _, _ := store.Get(context.Background(), providers.KeyFixtures)
	if !entry.FetchedAt.Equal(now) || entry.ETag != `"v1"` || string(entry.Data) != string(cached.Data) {
		t.Fatalf("expected timestamp refreshed with payload intact, got %+v", entry)
	}
}

func TestFetchFallsBackToStaleCache(t *testing.T) {
	store := cache.NewMemoryStore(cache.Options{})
	seed(t, store, cache.Entry{
		Key:       providers.KeyFixtures,
		Data:      json.RawMessage(`[{"id":7}]`),
		FetchedAt: now.Add(-10 * time.Minute),
	})
	var calls int32
	src := providers.NewRetryingSource(failingSource(&calls, &providers.NetworkError{Err: errors.New("offline")}), nil, nil, "stub", fastRetry)
	o := newOrchestrator(src, store, bundled.New())

	res, err := o.Fetch(context.Background(), providers.KeyFixtures)
	if err != nil {
		t.Fatalf("expected stale data instead of error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if res.Origin != OriginCache || !res.Stale || string(res.Data) != `[{"id":7}]` {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.FetchedAt.Equal(now.Add(-10 * time.Minute)) {
		t.Fatalf("expected original fetch time to be kept, got %v", res.FetchedAt)
	}
	var netErr *providers.NetworkError
	if !errors.As(res.Cause, &netErr) {
		t.Fatalf("expected cause to carry the network error, got %v", res.Cause)
	}
}

func TestFetchFallsBackToBundledSnapshot(t *testing.T) {
	var calls int32
	src := providers.NewRetryingSource(failingSource(&calls, &providers.NetworkError{Err: errors.New("offline")}), nil, nil, "stub", fastRetry)
	snap := bundled.New()
	store := cache.NewMemoryStore(cache.Options{})
	o := newOrchestrator(src, store, snap)

	res, err := o.Fetch(context.Background(), providers.KeyBootstrap)
	if err != nil {
		t.Fatalf("expected snapshot instead of error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	want, _ := snap.Lookup(providers.KeyBootstrap)
	if res.Origin != OriginSnapshot || !res.Stale || string(res.Data) != string(want) {
		t.Fatalf("unexpected result origin=%s stale=%v", res.Origin, res.Stale)
	}
	if _, ok, _ := store.Get(context.Background(), providers.KeyBootstrap); ok {
		t.Fatalf("expected snapshot not to be written to the cache")
	}
}

func TestFetchClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	src := providers.NewRetryingSource(failingSource(&calls, &providers.UpstreamError{Status: http.StatusNotFound}), nil, nil, "stub", fastRetry)
	o := newOrchestrator(src, cache.NewMemoryStore(cache.Options{}), nil)

	_, err := o.Fetch(context.Background(), providers.GameweekKey(3))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if up, ok := providers.AsUpstreamError(err); !ok || up.Status != http.StatusNotFound {
		t.Fatalf("expected wrapped 404, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestFetchInvalidJSONFallsBack(t *testing.T) {
	store := cache.NewMemoryStore(cache.Options{})
	seed(t, store, cache.Entry{Key: providers.KeyFixtures, Data: json.RawMessage(`[]`), FetchedAt: now.Add(-time.Hour)})
	src := providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		return providers.Response{StatusCode: http.StatusOK, Body: []byte(`<html>`)}, nil
	})
	o := newOrchestrator(src, store, nil)

	res, err := o.Fetch(context.Background(), providers.KeyFixtures)
	if err != nil || res.Origin != OriginCache || !res.Stale {
		t.Fatalf("expected stale cache on invalid payload, got %+v err=%v", res, err)
	}
	entry, _, _ := store.Get(context.Background(), providers.KeyFixtures)
	if string(entry.Data) != `[]` {
		t.Fatalf("expected cache to keep previous payload, got %s", entry.Data)
	}
}

func TestFetchNotModifiedWithoutEntryFallsBack(t *testing.T) {
	src := providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		return providers.Response{StatusCode: http.StatusNotModified}, nil
	})
	o := newOrchestrator(src, cache.NewMemoryStore(cache.Options{}), bundled.New())

	res, err := o.Fetch(context.Background(), providers.KeyFixtures)
	if err != nil || res.Origin != OriginSnapshot {
		t.Fatalf("expected snapshot fallback, got %+v err=%v", res, err)
	}
}

func TestFetchWithoutSource(t *testing.T) {
	o := newOrchestrator(nil, nil, nil)
	_, err := o.Fetch(context.Background(), providers.KeyFixtures)
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestFetchCanceledDoesNotFallBack(t *testing.T) {
	store := cache.NewMemoryStore(cache.Options{})
	seed(t, store, cache.Entry{Key: providers.KeyFixtures, Data: json.RawMessage(`[]`), FetchedAt: now})
	src := providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		return providers.Response{}, context.Canceled
	})
	o := newOrchestrator(src, store, nil)

	if _, err := o.Fetch(context.Background(), providers.KeyFixtures); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to propagate, got %v", err)
	}
}

type corruptStore struct {
	*cache.MemoryStore
}

func (corruptStore) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, cache.ErrCorrupt
}

func TestFetchTreatsCorruptEntryAsMiss(t *testing.T) {
	var gotReq providers.Request
	src := providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		gotReq = req
		return providers.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
	})
	o := newOrchestrator(src, corruptStore{cache.NewMemoryStore(cache.Options{})}, nil)

	res, err := o.Fetch(context.Background(), providers.KeyBootstrap)
	if err != nil || res.Origin != OriginNetwork {
		t.Fatalf("expected network fetch, got %+v err=%v", res, err)
	}
	if gotReq.IfNoneMatch != "" {
		t.Fatalf("expected unconditional request after corrupt entry")
	}
}

func TestCachedRespectsMaxAge(t *testing.T) {
	store := cache.NewMemoryStore(cache.Options{})
	seed(t, store, cache.Entry{Key: providers.KeyFixtures, Data: json.RawMessage(`[]`), FetchedAt: now.Add(-time.Minute)})
	o := newOrchestrator(nil, store, nil)

	res, ok := o.Cached(context.Background(), providers.KeyFixtures, 2*time.Minute)
	if !ok || res.Origin != OriginCache || res.Stale {
		t.Fatalf("expected fresh cached result, got %+v ok=%v", res, ok)
	}
	if _, ok := o.Cached(context.Background(), providers.KeyFixtures, 30*time.Second); ok {
		t.Fatalf("expected entry older than max age to be skipped")
	}
	if _, ok := o.Cached(context.Background(), providers.KeyBootstrap, time.Hour); ok {
		t.Fatalf("expected miss for absent key")
	}
	if _, ok := o.Peek(context.Background(), providers.KeyFixtures); !ok {
		t.Fatalf("expected peek to return entry regardless of age")
	}
}

func TestConcurrentFetchesShareOneRequest(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	src := providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return providers.Response{StatusCode: http.StatusOK, Body: []byte(`[]`)}, nil
	})
	o := newOrchestrator(src, cache.NewMemoryStore(cache.Options{}), nil)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = o.Fetch(context.Background(), providers.KeyFixtures)
	}()
	<-started

	if !o.InFlight(providers.KeyFixtures) {
		t.Fatalf("expected key to be in flight")
	}
	if _, err := o.TryFetch(context.Background(), providers.KeyFixtures); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = o.Fetch(context.Background(), providers.KeyFixtures)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range errs {
		if errs[i] != nil || results[i].Origin != OriginNetwork {
			t.Fatalf("caller %d: unexpected result %+v err=%v", i, results[i], errs[i])
		}
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one upstream request, got %d", calls)
	}
	if o.InFlight(providers.KeyFixtures) {
		t.Fatalf("expected in-flight marker cleared")
	}
}

func TestTryFetchRunsWhenIdle(t *testing.T) {
	src := providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		return providers.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
	})
	o := newOrchestrator(src, cache.NewMemoryStore(cache.Options{}), nil)
	if _, err := o.TryFetch(context.Background(), providers.KeyBootstrap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCanceledCallerDoesNotCancelSharedFetch(t *testing.T) {
	store := cache.NewMemoryStore(cache.Options{})
	seed(t, store, cache.Entry{Key: providers.KeyFixtures, Data: json.RawMessage(`[1]`), FetchedAt: now.Add(-time.Hour)})
	started := make(chan struct{})
	release := make(chan struct{})
	var srcErr atomic.Value
	src := providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		close(started)
		<-release
		if ctx.Err() != nil {
			srcErr.Store(ctx.Err())
		}
		return providers.Response{StatusCode: http.StatusOK, Body: []byte(`[2]`)}, nil
	})
	o := newOrchestrator(src, store, nil)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := o.Fetch(leaderCtx, providers.KeyFixtures)
		leaderErr <- err
	}()
	<-started

	type outcome struct {
		res Result
		err error
	}
	follower := make(chan outcome, 1)
	go func() {
		res, err := o.Fetch(context.Background(), providers.KeyFixtures)
		follower <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected leader to see its own cancellation, got %v", err)
	}

	close(release)
	got := <-follower
	if got.err != nil || got.res.Origin != OriginNetwork || string(got.res.Data) != "[2]" {
		t.Fatalf("expected follower to receive network data, got %+v err=%v", got.res, got.err)
	}
	if v := srcErr.Load(); v != nil {
		t.Fatalf("expected upstream context to survive leader cancel, got %v", v)
	}
}

func TestFetchTimeoutFallsBackToCache(t *testing.T) {
	store := cache.NewMemoryStore(cache.Options{})
	seed(t, store, cache.Entry{Key: providers.KeyFixtures, Data: json.RawMessage(`[]`), FetchedAt: now.Add(-time.Hour)})
	src := providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		<-ctx.Done()
		return providers.Response{}, ctx.Err()
	})
	o := newOrchestrator(src, store, nil)
	o.timeout = 10 * time.Millisecond

	res, err := o.Fetch(context.Background(), providers.KeyFixtures)
	if err != nil || res.Origin != OriginCache || !res.Stale {
		t.Fatalf("expected stale cache after timeout, got %+v err=%v", res, err)
	}
	if !errors.Is(res.Cause, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause, got %v", res.Cause)
	}
}

func TestFetchSkipsConditionalHeadersWithoutValidators(t *testing.T) {
	store := cache.NewMemoryStore(cache.Options{})
	seed(t, store, cache.Entry{Key: providers.KeyFixtures, Data: json.RawMessage(`[]`), FetchedAt: now.Add(-time.Hour)})
	var gotReq providers.Request
	src := providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		gotReq = req
		return providers.Response{StatusCode: http.StatusOK, Body: []byte(`[]`), ETag: `"v2"`}, nil
	})
	o := newOrchestrator(src, store, nil)

	if _, err := o.Fetch(context.Background(), providers.KeyFixtures); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotReq.IfNoneMatch != "" || gotReq.IfModifiedSince != "" {
		t.Fatalf("expected unconditional request, got %+v", gotReq)
	}
	if _, err := o.Fetch(context.Background(), providers.KeyFixtures); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotReq.IfNoneMatch != `"v2"` {
		t.Fatalf("expected stored ETag to be sent, got %q", gotReq.IfNoneMatch)
	}
}
