package http

import (
	nethttp "net/http"

	"github.com/preston-bernstein/epl-fixtures-service/internal/http/handlers"
)

// NewRouter registers HTTP routes on a ServeMux. admin and live are optional.
func NewRouter(handler *handlers.Handler, admin *handlers.AdminHandler, live nethttp.Handler) nethttp.Handler {
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/ready", handler.Ready)
	mux.HandleFunc("/status", handler.Status)
	mux.HandleFunc("/teams", handler.Teams)
	mux.HandleFunc("/gameweeks", handler.Gameweeks)
	mux.HandleFunc("/fixtures", handler.Fixtures)
	mux.HandleFunc("/fixtures/", handler.FixtureRoutes)
	if admin != nil {
		mux.HandleFunc("/refresh", admin.Refresh)
	}
	if live != nil {
		mux.Handle("/ws", live)
	}
	return mux
}
