package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const createEntriesTable = `CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	fetched_at INTEGER NOT NULL,
	etag TEXT NOT NULL DEFAULT '',
	last_modified TEXT NOT NULL DEFAULT '',
	size INTEGER NOT NULL
);`

// SQLiteStore keeps entries in a single cache_entries table.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
	now  func() time.Time
}

// NewSQLiteStore opens the database at path (":memory:" is allowed) and
// creates the schema.
func NewSQLiteStore(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("cache path required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createEntriesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache_entries: %w", err)
	}
	return &SQLiteStore{db: db, opts: opts, now: opts.clock()}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		e         = Entry{Key: key}
		data      []byte
		fetchedAt int64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT data, fetched_at, etag, last_modified FROM cache_entries WHERE key = ?`, key)
	if err := row.Scan(&data, &fetchedAt, &e.ETag, &e.LastModified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	if !json.Valid(data) {
		_ = s.Delete(ctx, key)
		return Entry{}, false, ErrCorrupt
	}
	e.Data = json.RawMessage(data)
	e.FetchedAt = time.Unix(0, fetchedAt).UTC()
	return e, true, nil
}

// Put upserts the entry and evicts older rows over budget in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, entry Entry) error {
	if err := entry.validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, data, fetched_at, etag, last_modified, size) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Key, []byte(entry.Data), entry.FetchedAt.UnixNano(), entry.ETag, entry.LastModified, entry.Size(),
	); err != nil {
		return err
	}

	if s.opts.MaxBytes > 0 {
		items, err := listMeta(ctx, tx)
		if err != nil {
			return err
		}
		for _, key := range evictionVictims(items, s.opts.MaxBytes, entry.Key) {
			if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	items, err := listMeta(ctx, s.db)
	if err != nil {
		return Stats{}, err
	}
	return summarize(BackendSQLite, items), nil
}

func (s *SQLiteStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listMeta(ctx context.Context, q queryer) ([]entryMeta, error) {
	rows, err := q.QueryContext(ctx, `SELECT key, size, fetched_at FROM cache_entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entryMeta
	for rows.Next() {
		var (
			m         entryMeta
			fetchedAt int64
		)
		if err := rows.Scan(&m.key, &m.size, &fetchedAt); err != nil {
			return nil, err
		}
		m.fetchedAt = time.Unix(0, fetchedAt).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
