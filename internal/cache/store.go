// Package cache persists raw upstream payloads keyed by resource.
//
// Entries are replaced whole, never merged. Every backend enforces an optional
// byte budget by evicting the oldest entries first, and drops entries that can
// no longer be decoded.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrCorrupt marks an entry that failed to decode. The entry has been
	// removed and callers should treat the lookup as a miss.
	ErrCorrupt = errors.New("cache entry corrupt")
	// ErrInvalidEntry is returned by Put for entries without a key or with a
	// payload that is not JSON.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Entry is one cached upstream response.
type Entry struct {
	Key          string          `json:"key"`
	Data         json.RawMessage `json:"data"`
	FetchedAt    time.Time       `json:"fetchedAt"`
	ETag         string          `json:"etag,omitempty"`
	LastModified string          `json:"lastModified,omitempty"`
}

// Size approximates the bytes an entry occupies in storage.
func (e Entry) Size() int64 {
	return int64(len(e.Key) + len(e.Data) + len(e.ETag) + len(e.LastModified))
}

// Age reports how long ago the entry was fetched.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// HasValidators reports whether the entry can be revalidated conditionally.
func (e Entry) HasValidators() bool {
	return e.ETag != "" || e.LastModified != ""
}

func (e Entry) validate() error {
	if e.Key == "" || !json.Valid(e.Data) {
		return ErrInvalidEntry
	}
	return nil
}

// Stats summarizes store contents.
type Stats struct {
	Backend string    `json:"backend"`
	Entries int       `json:"entries"`
	Bytes   int64     `json:"bytes"`
	Oldest  time.Time `json:"oldest,omitempty"`
	Newest  time.Time `json:"newest,omitempty"`
}

// Store is implemented by every cache backend.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
	// Cleanup removes entries older than maxAge and returns how many were removed.
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
	Close() error
}

// Options tune a store.
type Options struct {
	// MaxBytes caps the total entry size. Zero or negative disables the cap.
	MaxBytes int64
	Now      func() time.Time
}

func (o Options) clock() func() time.Time {
	if o.Now != nil {
		return o.Now
	}
	return time.Now
}
