// Package pg owns the database handle shared by every store: pool tuning and
// liveness checks live here so both binaries open connections the same way.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Options tune the connection pool.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// DefaultOptions are suitable for a single API instance.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns: 10,
		MaxIdleConns: 10,
		ConnLifetime: 30 * time.Minute,
	}
}

// Open connects to PostgreSQL through the pgx stdlib driver and applies pool
// settings. The connection is verified with a short ping.
func Open(ctx context.Context, dsn string, opts Options) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
