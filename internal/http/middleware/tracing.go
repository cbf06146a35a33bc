package middleware

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const tracingOperation = "epl-fixtures-http"

// Tracing instruments requests with OpenTelemetry. Health and readiness endpoints are skipped.
func Tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, tracingOperation,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + normalizePath(r.URL.Path)
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTrace(r.URL.Path)
		}),
	)
}

func shouldTrace(path string) bool {
	switch strings.ToLower(strings.TrimSpace(path)) {
	case "/health", "/ready":
		return false
	default:
		return true
	}
}
