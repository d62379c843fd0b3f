// Package postgres provides a shared quota store for multi-node
// deployments.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baltagiyc/geo-pulse/internal/quota"
)

const schema = `
CREATE TABLE IF NOT EXISTS access_code_usage (
	code TEXT PRIMARY KEY,
	used INTEGER NOT NULL DEFAULT 0
);`

// Store meters access codes in PostgreSQL. A single conditional upsert
// keeps consumption atomic across nodes without explicit locking.
type Store struct {
	pool *pgxpool.Pool
}

var _ quota.Store = (*Store)(nil)

// Open connects to the database at dsn and ensures the usage table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect quota db: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init quota schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// TryConsume atomically increments the code's usage if it is under limit.
func (s *Store) TryConsume(ctx context.Context, code string, limit int) (bool, int, error) {
	if code == "" {
		return true, limit, nil
	}
	if limit <= 0 {
		return false, 0, nil
	}

	var used int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO access_code_usage (code, used) VALUES ($1, 1)
		ON CONFLICT (code) DO UPDATE SET used = access_code_usage.used + 1
		WHERE access_code_usage.used < $2
		RETURNING used`, code, limit).Scan(&used)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// The upsert's WHERE clause rejected the increment.
		return false, 0, nil
	case err != nil:
		return false, 0, fmt.Errorf("consume quota for %q: %w", code, err)
	}
	return true, limit - used, nil
}
