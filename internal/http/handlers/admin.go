package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	appfixtures "github.com/preston-bernstein/epl-fixtures-service/internal/app/fixtures"
	"github.com/preston-bernstein/epl-fixtures-service/internal/http/requestutil"
	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
)

// Refresher forces an out-of-schedule refresh.
type Refresher interface {
	Refresh(ctx context.Context) (appfixtures.State, error)
}

// AdminHandler exposes the manual refresh endpoint.
type AdminHandler struct {
	refresher Refresher
	token     string
	logger    *slog.Logger
}

// NewAdminHandler constructs an AdminHandler. An empty token leaves the
// endpoint open.
func NewAdminHandler(refresher Refresher, token string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		refresher: refresher,
		token:     token,
		logger:    logger,
	}
}

// Refresh refetches fixtures immediately, bypassing stale time.
// Guarded by ADMIN_TOKEN when configured; returns 401 if missing/invalid.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost, h.logger) {
		return
	}
	logger := loggerFromContext(r, h.logger)
	if !h.authorize(r) {
		logging.Warn(logger, "admin unauthorized",
			slog.String(logging.FieldPath, r.URL.Path),
			slog.String("client_ip", requestutil.ClientIP(r)),
		)
		writeError(w, r, http.StatusUnauthorized, "unauthorized", h.logger)
		return
	}
	if h.refresher == nil {
		writeError(w, r, http.StatusServiceUnavailable, errUnavailable, h.logger)
		return
	}

	state, err := h.refresher.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.Warn(logger, "manual refresh failed", logging.FieldError, err)
		writeError(w, r, http.StatusBadGateway, errUnavailable, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  state.Version,
		"fixtures": len(state.Fixtures),
		"origin":   state.Origin,
		"stale":    state.Stale,
	}, h.logger)
	logging.Info(logger, "manual refresh complete",
		logging.FieldCount, len(state.Fixtures),
		logging.FieldOrigin, string(state.Origin),
	)
}

func (h *AdminHandler) authorize(r *http.Request) bool {
	if h.token == "" {
		return true
	}
	got, ok := requestutil.BearerToken(r)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}
