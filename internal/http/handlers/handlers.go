package handlers

import (
	"context"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	appfixtures "github.com/preston-bernstein/epl-fixtures-service/internal/app/fixtures"
	"github.com/preston-bernstein/epl-fixtures-service/internal/cache"
	"github.com/preston-bernstein/epl-fixtures-service/internal/fetch"
	"github.com/preston-bernstein/epl-fixtures-service/internal/freshness"
	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
	"github.com/preston-bernstein/epl-fixtures-service/internal/poller"
	"github.com/preston-bernstein/epl-fixtures-service/internal/timeutil"
	"github.com/preston-bernstein/epl-fixtures-service/internal/view"
)

// errUnavailable is the only detail clients get when data cannot be served.
const errUnavailable = "unable to load data"

type nowFunc func() time.Time

// Handler wires HTTP routes to the fixtures service.
type Handler struct {
	svc      *appfixtures.Service
	defaults view.Settings
	logger   *slog.Logger
	now      nowFunc
	statusFn func() poller.Status
	statsFn  func(context.Context) (cache.Stats, error)
	liveFn   func() int
}

// NewHandler constructs a Handler with defaults. statusFn and statsFn may be nil.
func NewHandler(svc *appfixtures.Service, defaults view.Settings, logger *slog.Logger, statusFn func() poller.Status, statsFn func(context.Context) (cache.Stats, error)) *Handler {
	return &Handler{
		svc:      svc,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
		statusFn: statusFn,
		statsFn:  statsFn,
	}
}

// WithLiveClients makes /status report the websocket client count from fn.
func (h *Handler) WithLiveClients(fn func() int) *Handler {
	h.liveFn = fn
	return h
}

// FixturesResponse is the /fixtures payload.
type FixturesResponse struct {
	view.View
	Version   uint64       `json:"version"`
	FetchedAt time.Time    `json:"fetchedAt"`
	Origin    fetch.Origin `json:"origin"`
	Stale     bool         `json:"stale"`
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Freshness freshness.Summary `json:"freshness"`
	Interval  string            `json:"interval"`
	StaleTime string            `json:"staleTime"`
	Poller    *poller.Status    `json:"poller,omitempty"`
	Cache     *cache.Stats      `json:"cache,omitempty"`
	Live      *int              `json:"liveClients,omitempty"`
	Version   uint64            `json:"version"`
	Fixtures  int               `json:"fixtures"`
	FetchedAt time.Time         `json:"fetchedAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Origin    fetch.Origin      `json:"origin"`
	Stale     bool              `json:"stale"`
}

// ServeHTTP dispatches by path for callers that mount the Handler directly.
func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	switch {
	case r.URL.Path == "/health":
		h.Health(w, r)
	case r.URL.Path == "/ready":
		h.Ready(w, r)
	case r.URL.Path == "/status":
		h.Status(w, r)
	case r.URL.Path == "/teams":
		h.Teams(w, r)
	case r.URL.Path == "/gameweeks":
		h.Gameweeks(w, r)
	case r.URL.Path == "/fixtures":
		h.Fixtures(w, r)
	case strings.HasPrefix(r.URL.Path, "/fixtures/"):
		h.FixtureRoutes(w, r)
	default:
		writeError(w, r, nethttp.StatusNotFound, "not found", h.logger)
	}
}

// Health reports the service health.
func (h *Handler) Health(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	if err := r.Context().Err(); err != nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, "shutting down", h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Ready reports readiness for traffic (e.g., for Kubernetes readiness checks).
func (h *Handler) Ready(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	if h.statusFn == nil || h.statusFn().IsReady() {
		writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ready"}, h.logger)
		return
	}
	// Cached or bundled data is still worth serving while upstream is down.
	if h.svc != nil && h.svc.Snapshot().Loaded() {
		writeJSON(w, nethttp.StatusOK, map[string]string{"status": "degraded"}, h.logger)
		return
	}
	writeError(w, r, nethttp.StatusServiceUnavailable, "not ready", h.logger)
}

// Fixtures returns the grouped fixture view.
func (h *Handler) Fixtures(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	settings, ok := h.settings(w, r)
	if !ok {
		return
	}
	state, ok := h.loaded(w, r)
	if !ok {
		return
	}

	items := state.Fixtures
	if raw := strings.TrimSpace(r.URL.Query().Get("gameweek")); raw != "" {
		gw, err := strconv.Atoi(raw)
		if err != nil || gw <= 0 {
			writeError(w, r, nethttp.StatusBadRequest, "invalid gameweek", h.logger)
			return
		}
		items = h.svc.GameweekFixtures(r.Context(), gw)
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("team")); raw != "" {
		team, err := strconv.Atoi(raw)
		if err != nil || team <= 0 {
			writeError(w, r, nethttp.StatusBadRequest, "invalid team", h.logger)
			return
		}
		items = view.FilterByTeam(items, team)
	}

	v := view.Build(items, settings, h.now())
	logging.Debug(loggerFromContext(r, h.logger), "served fixtures",
		logging.FieldCount, v.Total,
		logging.FieldOrigin, string(state.Origin),
	)
	writeJSON(w, nethttp.StatusOK, FixturesResponse{
		View:      v,
		Version:   state.Version,
		FetchedAt: state.FetchedAt,
		Origin:    state.Origin,
		Stale:     state.Stale,
	}, h.logger)
}

// FixtureRoutes serves /fixtures/next and /fixtures/{id}.
func (h *Handler) FixtureRoutes(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/fixtures"), "/")
	if rest == "next" {
		h.NextFixture(w, r)
		return
	}
	h.FixtureByID(w, r)
}

// NextFixture returns the next scheduled fixture.
func (h *Handler) NextFixture(w nethttp.ResponseWriter, r *nethttp.Request) {
	settings, ok := h.settings(w, r)
	if !ok {
		return
	}
	state, ok := h.loaded(w, r)
	if !ok {
		return
	}
	now := h.now()
	next := view.FindNextFixture(state.Fixtures, now)
	if next == nil {
		writeError(w, r, nethttp.StatusNotFound, "no upcoming fixture", h.logger)
		return
	}
	loc := timeutil.ResolveLocation(settings.SelectedTimezone)
	writeJSON(w, nethttp.StatusOK, view.NewItem(*next, loc), h.logger)
}

// FixtureByID returns one fixture with its current status.
func (h *Handler) FixtureByID(w nethttp.ResponseWriter, r *nethttp.Request) {
	// Expect path: /fixtures/{id}
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/fixtures"), "/")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeError(w, r, nethttp.StatusBadRequest, "invalid fixture id", h.logger)
		return
	}
	settings, ok := h.settings(w, r)
	if !ok {
		return
	}
	if _, ok := h.loaded(w, r); !ok {
		return
	}
	f, found := h.svc.FixtureByID(id)
	if !found {
		writeError(w, r, nethttp.StatusNotFound, "fixture not found", h.logger)
		return
	}
	loc := timeutil.ResolveLocation(settings.SelectedTimezone)
	writeJSON(w, nethttp.StatusOK, view.NewItem(f, loc), h.logger)
}

// Teams returns the teams from bootstrap data.
func (h *Handler) Teams(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	state, ok := h.loaded(w, r)
	if !ok {
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"teams": state.Teams}, h.logger)
}

// Gameweeks returns the gameweeks from bootstrap data.
func (h *Handler) Gameweeks(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	state, ok := h.loaded(w, r)
	if !ok {
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"gameweeks": state.Gameweeks}, h.logger)
}

// Status reports the freshness tier, polling cadence and cache usage.
func (h *Handler) Status(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	now := h.now()
	var (
		state   appfixtures.State
		summary = freshness.Summary{Tier: freshness.TierNormal}
		policy  = freshness.DefaultPolicy()
	)
	if h.svc != nil {
		state = h.svc.Snapshot()
		summary = h.svc.Summary(now)
		policy = h.svc.Policy()
	}

	resp := StatusResponse{
		Freshness: summary,
		Interval:  policy.RefetchIntervalAt(summary.Tier, now).String(),
		StaleTime: policy.StaleTimeAt(summary.Tier, now).String(),
		Version:   state.Version,
		Fixtures:  len(state.Fixtures),
		FetchedAt: state.FetchedAt,
		UpdatedAt: state.UpdatedAt,
		Origin:    state.Origin,
		Stale:     state.Stale,
	}
	if h.statusFn != nil {
		status := h.statusFn()
		resp.Poller = &status
	}
	if h.statsFn != nil {
		stats, err := h.statsFn(r.Context())
		if err != nil {
			logging.Warn(loggerFromContext(r, h.logger), "cache stats failed", logging.FieldError, err)
		} else {
			resp.Cache = &stats
		}
	}
	if h.liveFn != nil {
		clients := h.liveFn()
		resp.Live = &clients
	}
	writeJSON(w, nethttp.StatusOK, resp, h.logger)
}

// settings merges query overrides (hidePrevious, tz) into the defaults.
func (h *Handler) settings(w nethttp.ResponseWriter, r *nethttp.Request) (view.Settings, bool) {
	settings := h.defaults
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("hidePrevious")); raw != "" {
		hide, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, nethttp.StatusBadRequest, "invalid hidePrevious", h.logger)
			return view.Settings{}, false
		}
		settings.HidePreviousFixtures = hide
	}
	if tz := strings.TrimSpace(q.Get("tz")); tz != "" {
		settings.SelectedTimezone = tz
	}
	return settings, true
}

// loaded returns the current state, answering 503 when nothing has loaded yet.
func (h *Handler) loaded(w nethttp.ResponseWriter, r *nethttp.Request) (appfixtures.State, bool) {
	if h.svc == nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, errUnavailable, h.logger)
		return appfixtures.State{}, false
	}
	state := h.svc.Snapshot()
	if !state.Loaded() {
		logging.Warn(loggerFromContext(r, h.logger), "fixtures requested before first load")
		writeError(w, r, nethttp.StatusServiceUnavailable, errUnavailable, h.logger)
		return appfixtures.State{}, false
	}
	return state, true
}
