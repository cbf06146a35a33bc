package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	entriesDir   = "entries"
	manifestName = "manifest.json"
)

// FileStore writes one JSON file per entry under {basePath}/entries and keeps
// a manifest of keys, sizes and fetch times at {basePath}/manifest.json.
// Writes go to a temp file first and are renamed into place.
type FileStore struct {
	mu       sync.Mutex
	basePath string
	opts     Options
	now      func() time.Time
	index    map[string]entryMeta
}

// NewFileStore opens (or creates) a store rooted at basePath. Existing entry
// files are indexed; unreadable ones are removed.
func NewFileStore(basePath string, opts Options) (*FileStore, error) {
	if basePath == "" {
		return nil, errors.New("cache path required")
	}
	if err := os.MkdirAll(filepath.Join(basePath, entriesDir), 0o755); err != nil {
		return nil, err
	}
	s := &FileStore{
		basePath: basePath,
		opts:     opts,
		now:      opts.clock(),
		index:    make(map[string]entryMeta),
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// BasePath exposes the store root (primarily for testing).
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

func (s *FileStore) entryPath(key string) string {
	return filepath.Join(s.basePath, entriesDir, url.PathEscape(key)+".json")
}

// loadIndex trusts the manifest for files it lists and reads the rest. The
// manifest is rewritten whenever it did not match the directory.
func (s *FileStore) loadIndex() error {
	dir := filepath.Join(s.basePath, entriesDir)
	files, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	listed := make(map[string]ManifestEntry)
	m, err := ReadManifest(s.basePath)
	dirty := err != nil
	if err == nil {
		for _, me := range m.Entries {
			listed[filepath.Base(s.entryPath(me.Key))] = me
		}
	}
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		if me, ok := listed[name]; ok {
			s.index[me.Key] = entryMeta{key: me.Key, size: me.Bytes, fetchedAt: me.FetchedAt}
			continue
		}
		dirty = true
		path := filepath.Join(dir, name)
		e, err := readEntryFile(path)
		if err != nil {
			_ = os.Remove(path)
			continue
		}
		s.index[e.Key] = entryMeta{key: e.Key, size: e.Size(), fetchedAt: e.FetchedAt}
	}
	if !dirty && len(s.index) == len(m.Entries) {
		return nil
	}
	return s.writeManifestLocked()
}

func readEntryFile(path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	var e Entry
	if err := json.NewDecoder(f).Decode(&e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if e.Key == "" || !json.Valid(e.Data) {
		return Entry{}, ErrCorrupt
	}
	return e, nil
}

// Get reads the entry for key from disk. A file that fails to decode is
// deleted and reported as ErrCorrupt.
func (s *FileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.entryPath(key)
	e, err := readEntryFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			delete(s.index, key)
			return Entry{}, false, nil
		}
		if errors.Is(err, ErrCorrupt) {
			_ = os.Remove(path)
			delete(s.index, key)
			_ = s.writeManifestLocked()
			return Entry{}, false, err
		}
		return Entry{}, false, err
	}
	return e, true, nil
}

// Put atomically replaces the entry file for entry.Key.
func (s *FileStore) Put(_ context.Context, entry Entry) error {
	if err := entry.validate(); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.entryPath(entry.Key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		return err
	}
	s.index[entry.Key] = entryMeta{key: entry.Key, size: entry.Size(), fetchedAt: entry.FetchedAt}

	for _, key := range evictionVictims(s.metaLocked(), s.opts.MaxBytes, entry.Key) {
		s.removeLocked(key)
	}
	return s.writeManifestLocked()
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
	return s.writeManifestLocked()
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.index {
		s.removeLocked(key)
	}
	return s.writeManifestLocked()
}

func (s *FileStore) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return summarize(BackendFile, s.metaLocked()), nil
}

func (s *FileStore) Cleanup(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, m := range s.index {
		if m.fetchedAt.Before(cutoff) {
			s.removeLocked(key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.writeManifestLocked()
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) removeLocked(key string) {
	if err := os.Remove(s.entryPath(key)); err != nil && !os.IsNotExist(err) {
		return
	}
	delete(s.index, key)
}

func (s *FileStore) metaLocked() []entryMeta {
	out := make([]entryMeta, 0, len(s.index))
	for _, m := range s.index {
		out = append(out, m)
	}
	return out
}

// Manifest describes the entries currently on disk.
type Manifest struct {
	Version     int             `json:"version"`
	GeneratedAt time.Time       `json:"generatedAt"`
	TotalBytes  int64           `json:"totalBytes"`
	MaxBytes    int64           `json:"maxBytes,omitempty"`
	Entries     []ManifestEntry `json:"entries"`
}

type ManifestEntry struct {
	Key       string    `json:"key"`
	Bytes     int64     `json:"bytes"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// ReadManifest loads the manifest written under basePath.
func ReadManifest(basePath string) (Manifest, error) {
	f, err := os.Open(filepath.Join(basePath, manifestName))
	if err != nil {
		return Manifest{}, err
	}
	defer f.Close()
	var m Manifest
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func (s *FileStore) writeManifestLocked() error {
	m := Manifest{
		Version:     1,
		GeneratedAt: s.now().UTC(),
		MaxBytes:    s.opts.MaxBytes,
		Entries:     make([]ManifestEntry, 0, len(s.index)),
	}
	for _, meta := range s.index {
		m.TotalBytes += meta.size
		m.Entries = append(m.Entries, ManifestEntry{Key: meta.key, Bytes: meta.size, FetchedAt: meta.fetchedAt})
	}
	sort.Slice(m.Entries, func(i, j int) bool {
		return m.Entries[i].Key < m.Entries[j].Key
	})

	path := filepath.Join(s.basePath, manifestName)
	tmp := path + ".tmp"
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
