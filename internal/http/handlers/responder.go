package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/preston-bernstein/epl-fixtures-service/internal/http/middleware"
	"github.com/preston-bernstein/epl-fixtures-service/internal/http/requestutil"
	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON encodes payload with the given status. Responses are never cached
// by intermediaries since fixture data changes under the poller.
func writeJSON(w http.ResponseWriter, status int, payload any, logger *slog.Logger) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error(logger, "failed to encode response", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, logger *slog.Logger) {
	reqID := middleware.RequestIDFromContext(r.Context())
	if raw := r.Header.Get(requestutil.HeaderRequestID); reqID == "" && raw != "" {
		reqID = requestutil.SanitizeRequestID(raw)
	}
	writeJSON(w, status, errorBody{Error: message, RequestID: reqID}, logger)
}

// requireMethod accepts HEAD wherever GET is allowed.
func requireMethod(w http.ResponseWriter, r *http.Request, method string, logger *slog.Logger) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	allow := method
	if method == http.MethodGet {
		allow = "GET, HEAD"
	}
	w.Header().Set("Allow", allow)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", logger)
	return false
}

func loggerFromContext(r *http.Request, fallback *slog.Logger) *slog.Logger {
	if r == nil {
		return fallback
	}
	return logging.FromContext(r.Context(), fallback)
}
