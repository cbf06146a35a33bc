package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	appfixtures "github.com/preston-bernstein/epl-fixtures-service/internal/app/fixtures"
	"github.com/preston-bernstein/epl-fixtures-service/internal/http/handlers"
	"github.com/preston-bernstein/epl-fixtures-service/internal/testutil"
	"github.com/preston-bernstein/epl-fixtures-service/internal/view"
)

type refresher struct{ svc *appfixtures.Service }

func (r refresher) Refresh(ctx context.Context) (appfixtures.State, error) {
	return r.svc.Refresh(ctx, true)
}

func TestRouterRoutesKnownPaths(t *testing.T) {
	svc := testutil.NewFixtureService(t)
	h := handlers.NewHandler(svc, view.Settings{SelectedTimezone: "UTC"}, nil, nil, nil)
	admin := handlers.NewAdminHandler(refresher{svc: svc}, "", nil)
	live := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUpgradeRequired)
	})

	router := NewRouter(h, admin, live)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/status", http.StatusOK},
		{http.MethodGet, "/teams", http.StatusOK},
		{http.MethodGet, "/gameweeks", http.StatusOK},
		{http.MethodGet, "/fixtures", http.StatusOK},
		{http.MethodGet, "/fixtures/1", http.StatusOK},
		{http.MethodGet, "/fixtures/9999", http.StatusNotFound},
		{http.MethodGet, "/fixtures/abc", http.StatusBadRequest},
		{http.MethodPost, "/refresh", http.StatusOK},
		{http.MethodGet, "/refresh", http.StatusMethodNotAllowed},
		{http.MethodGet, "/ws", http.StatusUpgradeRequired},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != tc.want {
			t.Fatalf("%s %s expected status %d, got %d", tc.method, tc.path, tc.want, rr.Code)
		}
	}
}

func TestRouterOmitsOptionalRoutes(t *testing.T) {
	h := handlers.NewHandler(nil, view.Settings{}, nil, nil, nil)
	router := NewRouter(h, nil, nil)

	for _, path := range []string{"/refresh", "/ws", "/does-not-exist"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", path, rr.Code)
		}
	}
}
