package testutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/preston-bernstein/epl-fixtures-service/internal/cache"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
)

func TestClockHelpers(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := NowAt(now)(); !got.Equal(now) {
		t.Fatalf("expected fixed time, got %v", got)
	}
	if MustParseRFC3339(now.Format(time.RFC3339)) != now {
		t.Fatalf("expected parse round trip")
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on invalid RFC3339")
		}
	}()
	MustParseRFC3339("not-a-time")
}

func TestFixtureHelpers(t *testing.T) {
	kickoff := time.Date(2024, 8, 17, 14, 0, 0, 0, time.UTC)
	f := SampleFixture(7, kickoff)
	if f.ID != 7 || !f.Kickoff().Equal(kickoff) || f.Gameweek == nil || *f.Gameweek != 1 {
		t.Fatalf("unexpected fixture %+v", f)
	}
	live := LiveFixture(8, kickoff, 30)
	if !live.Started || live.Minutes != 30 || live.HomeScore == nil {
		t.Fatalf("unexpected live fixture %+v", live)
	}
	if teams := SampleTeams(); len(teams) != 2 || teams[0].ID != f.HomeTeamID {
		t.Fatalf("unexpected teams %+v", teams)
	}
}

func TestServeHelpers(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	rr := Serve(handler, http.MethodPost, "/test", strings.NewReader("{}"))
	AssertStatus(t, rr, http.StatusCreated)
	var body map[string]bool
	DecodeJSON(t, rr, &body)
	if !body["ok"] {
		t.Fatalf("expected ok=true")
	}

	req := httptest.NewRequest(http.MethodGet, "/req", nil)
	rr2 := ServeRequest(handler, req)
	AssertStatus(t, rr2, http.StatusCreated)
}

func TestNewFixtureServiceLoadsBundledData(t *testing.T) {
	svc := NewFixtureService(t)
	state := svc.Snapshot()
	if !state.Loaded() || len(state.Fixtures) != 21 || len(state.Teams) != 20 {
		t.Fatalf("unexpected state: loaded=%v fixtures=%d teams=%d", state.Loaded(), len(state.Fixtures), len(state.Teams))
	}
}

func TestNewEmptyFixtureServiceStartsUnloaded(t *testing.T) {
	svc := NewEmptyFixtureService(BundledSource())
	if svc.Snapshot().Loaded() {
		t.Fatalf("expected empty service")
	}
}

func TestTempFileStore(t *testing.T) {
	store := NewTempFileStore(t)
	entry := cache.Entry{Key: "fixtures", Data: []byte(`[]`), FetchedAt: time.Now()}
	if err := store.Put(context.Background(), entry); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if _, ok, err := store.Get(context.Background(), "fixtures"); err != nil || !ok {
		t.Fatalf("expected entry, ok=%v err=%v", ok, err)
	}
}

func TestSourceHelpers(t *testing.T) {
	ctx := context.Background()
	src := JSONSource(map[string]string{providers.KeyFixtures: `[]`})
	resp, err := src.Fetch(ctx, providers.Request{Key: providers.KeyFixtures})
	if err != nil || string(resp.Body) != "[]" || resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected response %+v err=%v", resp, err)
	}
	if _, err := src.Fetch(ctx, providers.Request{Key: "missing"}); err == nil {
		t.Fatalf("expected error for unknown key")
	} else if up, ok := providers.AsUpstreamError(err); !ok || up.Status != http.StatusNotFound {
		t.Fatalf("expected 404 upstream error, got %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := src.Fetch(canceled, providers.Request{Key: providers.KeyFixtures}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}

	boom := errors.New("boom")
	if _, err := ErrSource(boom).Fetch(ctx, providers.Request{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	counting := &CountingSource{Next: BundledSource()}
	if _, err := counting.Fetch(ctx, providers.Request{Key: providers.KeyBootstrap}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counting.Calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", counting.Calls.Load())
	}
}

func TestServerStubs(t *testing.T) {
	p := &StubPoller{Err: errors.New("stop")}
	p.Start(context.Background())
	if err := p.Stop(context.Background()); !errors.Is(err, p.Err) {
		t.Fatalf("expected stop error")
	}
	if _, err := p.Refresh(context.Background()); !errors.Is(err, p.Err) {
		t.Fatalf("expected refresh error")
	}
	if p.StartCalls != 1 || p.StopCalls != 1 || p.RefreshCalls != 1 {
		t.Fatalf("unexpected call counts %+v", p)
	}
	if p.Status() != p.StatusVal {
		t.Fatalf("expected status passthrough")
	}

	sh := &StubHTTPServer{ListenErr: errors.New("boom"), ShutdownErr: errors.New("down")}
	sh.HandlerVal = http.NewServeMux()
	_ = sh.ListenAndServe()
	_ = sh.Shutdown(context.Background())
	_ = sh.Handler()
	_ = sh.Addr()
	if sh.ListenCalls != 1 || sh.ShutdownCalls != 1 {
		t.Fatalf("expected listen/shutdown calls, got %+v", sh)
	}

	if sh.Addr() != ":0" {
		t.Fatalf("expected default addr, got %q", sh.Addr())
	}

	blocked := &StubHTTPServer{Block: make(chan struct{})}
	done := make(chan error, 1)
	go func() { done <- blocked.Shutdown(context.Background()) }()
	close(blocked.Block)
	if err := <-done; err != nil {
		t.Fatalf("expected nil shutdown err, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stuck := &StubHTTPServer{Block: make(chan struct{})}
	if err := stuck.Shutdown(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error from blocked shutdown, got %v", err)
	}
}

func TestLoggerAndMetricsHelpers(t *testing.T) {
	logger, buf := NewBufferLogger()
	logger.Info("hello", "k", "v")
	if buf.Len() == 0 {
		t.Fatalf("expected buffered log output")
	}
	rec, shutdown := NewRecorderWithShutdown()
	if rec == nil || shutdown == nil {
		t.Fatalf("expected recorder and shutdown")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil shutdown error, got %v", err)
	}
}

func TestClockAdvance(t *testing.T) {
	start := time.Date(2024, 8, 16, 19, 0, 0, 0, time.UTC)
	c := NewClock(start)
	c.Advance(90 * time.Minute)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("expected advanced clock, got %v", got)
	}
}

func TestAssertErrorReadsErrorField(t *testing.T) {
	rr := Serve(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"fixture not found"}`))
	}), http.MethodGet, "/fixtures/9999", nil)

	AssertError(t, rr, http.StatusNotFound, "fixture not found")
}
