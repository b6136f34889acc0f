// Package storage keeps raw API payloads in a local SQLite file so repeated
// lookups of the same address or CVE skip the network.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	KindHost = "host"
	KindCVE  = "cve"
)

const createStmt = `
CREATE TABLE IF NOT EXISTS payloads (
    kind TEXT NOT NULL,
    key TEXT NOT NULL,
    value BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (kind, key)
);
`

// Cache is a TTL-bounded payload store. A nil *Cache is valid and always
// misses, so callers do not need to branch on whether caching is enabled.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open creates the database file (and its directory) if needed.
func Open(path string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time keeps sqlite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA encoding = 'UTF-8'"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(createStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the stored value, or ok=false when absent or expired.
func (c *Cache) Get(ctx context.Context, kind, key string) ([]byte, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	var value []byte
	var created int64
	err := c.db.QueryRowContext(ctx,
		"SELECT value, created_at FROM payloads WHERE kind = ? AND key = ?", kind, key,
	).Scan(&value, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if c.expired(created) {
		return nil, false, nil
	}
	return value, true, nil
}

// Put inserts or replaces a value and resets its age.
func (c *Cache) Put(ctx context.Context, kind, key string, value []byte) error {
	if c == nil {
		return nil
	}
	_, err := c.db.ExecContext(ctx, `
INSERT INTO payloads (kind, key, value, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT(kind, key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at;
`, kind, key, value, c.now().Unix())
	return err
}

// Purge deletes expired rows and reports how many were removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	if c == nil || c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(ctx, "DELETE FROM payloads WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) expired(created int64) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(time.Unix(created, 0)) > c.ttl
}
