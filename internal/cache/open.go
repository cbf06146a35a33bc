package cache

import (
	"context"
	"fmt"
	"strings"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open constructs the store named by backend. Empty selects memory.
func Open(ctx context.Context, backend, path string, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemoryStore(opts), nil
	case BackendFile:
		s, err := NewFileStore(path, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(ctx, path, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
