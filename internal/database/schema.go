// Package database implements FeedCloud's PostgreSQL persistence layer on
// top of pgx. It owns the four tables of the data model (users, feeds,
// entries, feed_update_runs) plus a bearer_tokens table for auth, and
// exposes a Database interface the rest of the system depends on so tests
// can substitute an in-memory fake (see database/memory.go).
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool. All queries go through it; every
// exported method acquires and releases its own connection via the pool,
// so each caller opens its own database session rather than holding one
// across a request or task.
type DB struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres at dsn, pings it, and creates the schema if it
// does not already exist.
func Open(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = 25
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.createSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return db, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS feeds (
			id SERIAL PRIMARY KEY,
			url TEXT NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_feeds_url_user ON feeds (url, user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_feeds_user_id ON feeds (user_id);`,
		`CREATE TABLE IF NOT EXISTS entries (
			id SERIAL PRIMARY KEY,
			feed_id INTEGER NOT NULL REFERENCES feeds (id) ON DELETE CASCADE,
			original_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ,
			saved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			status TEXT NOT NULL DEFAULT 'unread'
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_original_feed ON entries (original_id, feed_id);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_feed_id_published ON entries (feed_id, published_at DESC);`,
		`CREATE TABLE IF NOT EXISTS feed_update_runs (
			id SERIAL PRIMARY KEY,
			feed_id INTEGER NOT NULL REFERENCES feeds (id) ON DELETE CASCADE,
			"timestamp" TIMESTAMPTZ NOT NULL DEFAULT now(),
			status TEXT NOT NULL,
			failure_count INTEGER NOT NULL DEFAULT 0,
			next_run_schedule TIMESTAMPTZ,
			n_downloaded INTEGER NOT NULL DEFAULT 0,
			n_ignored INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_feed_id_timestamp ON feed_update_runs (feed_id, "timestamp" DESC, id DESC);`,
		`CREATE TABLE IF NOT EXISTS bearer_tokens (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bearer_tokens_user_id ON bearer_tokens (user_id);`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
