package testutil

import (
	"context"
	"testing"

	appfixtures "github.com/preston-bernstein/epl-fixtures-service/internal/app/fixtures"
	"github.com/preston-bernstein/epl-fixtures-service/internal/cache"
	"github.com/preston-bernstein/epl-fixtures-service/internal/fetch"
	"github.com/preston-bernstein/epl-fixtures-service/internal/freshness"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers/bundled"
)

// NewOrchestrator wires source to an in-memory cache with the bundled snapshot as fallback.
func NewOrchestrator(source providers.Source) *fetch.Orchestrator {
	return fetch.New(source, cache.NewMemoryStore(cache.Options{}), bundled.New(), nil, nil)
}

// NewFixtureService returns a service loaded from the bundled snapshot.
func NewFixtureService(t testing.TB) *appfixtures.Service {
	t.Helper()
	svc := NewEmptyFixtureService(BundledSource())
	if _, err := svc.Refresh(context.Background(), true); err != nil {
		t.Fatalf("failed to load fixtures: %v", err)
	}
	return svc
}

// NewEmptyFixtureService returns a service that has not fetched anything yet.
func NewEmptyFixtureService(source providers.Source) *appfixtures.Service {
	return appfixtures.NewService(NewOrchestrator(source), freshness.DefaultPolicy(), nil)
}

// NewTempFileStore opens a file-backed cache in a temp dir.
func NewTempFileStore(t testing.TB) *cache.FileStore {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir(), cache.Options{})
	if err != nil {
		t.Fatalf("failed to open file store: %v", err)
	}
	return store
}
