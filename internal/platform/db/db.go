// Package db opens the Postgres pool shared by the staging store and the
// SQL caches.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const pingTimeout = 10 * time.Second

// Open connects through the pgx database/sql driver; callers blank-import
// github.com/jackc/pgx/v5/stdlib.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	pool, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// One sequential pipeline per process.
	pool.SetMaxOpenConns(4)
	pool.SetMaxIdleConns(2)
	pool.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("open db: ping postgres: %w", err)
	}
	return pool, nil
}
