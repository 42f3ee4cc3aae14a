package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// schemaStatements are idempotent; InitSchema can run before every job.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS distance_cache (
		origin           TEXT NOT NULL,
		destination      TEXT NOT NULL,
		distance_meters  BIGINT NOT NULL,
		duration_seconds BIGINT NOT NULL,
		cached_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (origin, destination)
	)`,
	`CREATE TABLE IF NOT EXISTS geocode_cache (
		address   TEXT PRIMARY KEY,
		lon       DOUBLE PRECISION NOT NULL,
		lat       DOUBLE PRECISION NOT NULL,
		cached_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_distance_cache_cached_at ON distance_cache (cached_at)`,
	`CREATE INDEX IF NOT EXISTS idx_geocode_cache_cached_at ON geocode_cache (cached_at)`,
}

// InitSchema creates the cache tables in the public schema. Staging schemas
// are per run and belong to the staging store.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init cache schema: db is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init cache schema: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init cache schema: statement #%d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init cache schema: commit: %w", err)
	}
	return nil
}

// Purge deletes cache rows older than maxAge and reports how many went.
func Purge(ctx context.Context, db *sql.DB, maxAge time.Duration) (int64, error) {
	if db == nil {
		return 0, errors.New("purge cache: db is nil")
	}
	if maxAge <= 0 {
		return 0, nil
	}

	var total int64
	for _, table := range []string{"distance_cache", "geocode_cache"} {
		res, err := db.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE cached_at < now() - make_interval(secs => $1::bigint)",
			int64(maxAge/time.Second),
		)
		if err != nil {
			return total, fmt.Errorf("purge %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
