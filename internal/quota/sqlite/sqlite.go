// Package sqlite provides a file-backed quota store for single-node
// deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/baltagiyc/geo-pulse/internal/quota"
)

const schema = `
CREATE TABLE IF NOT EXISTS access_code_usage (
	code TEXT PRIMARY KEY,
	used INTEGER NOT NULL DEFAULT 0
);`

// Store meters access codes in a local SQLite database.
type Store struct {
	db *sql.DB
}

var _ quota.Store = (*Store)(nil)

// Open creates or opens the quota database at path. Transactions take the
// write lock up front (txlock=immediate) so the read-modify-write in
// TryConsume cannot deadlock under concurrent writers.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("open quota db: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init quota schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// TryConsume atomically increments the code's usage if it is under limit.
func (s *Store) TryConsume(ctx context.Context, code string, limit int) (bool, int, error) {
	if code == "" {
		return true, limit, nil
	}
	if limit <= 0 {
		return false, 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin quota tx: %w", err)
	}
	defer tx.Rollback()

	var used int
	err = tx.QueryRowContext(ctx, `SELECT used FROM access_code_usage WHERE code = ?`, code).Scan(&used)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		used = 0
	case err != nil:
		return false, 0, fmt.Errorf("read quota for %q: %w", code, err)
	}

	if used >= limit {
		return false, 0, nil
	}

	used++
	_, err = tx.ExecContext(ctx, `
		INSERT INTO access_code_usage (code, used) VALUES (?, ?)
		ON CONFLICT (code) DO UPDATE SET used = excluded.used`, code, used)
	if err != nil {
		return false, 0, fmt.Errorf("update quota for %q: %w", code, err)
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit quota tx: %w", err)
	}
	return true, limit - used, nil
}
