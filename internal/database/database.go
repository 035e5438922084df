package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at boot. Statements are idempotent so restarts are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL,
		access_key TEXT NOT NULL UNIQUE,
		device_key TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		api_calls_total INTEGER NOT NULL DEFAULT 0,
		api_call_limit INTEGER,
		expires_on TIMESTAMPTZ,
		pending_notification TEXT,
		uninstall_pending BOOLEAN NOT NULL DEFAULT FALSE,
		vision_base_url TEXT NOT NULL DEFAULT '',
		vision_api_key TEXT NOT NULL DEFAULT '',
		vision_model_id TEXT NOT NULL DEFAULT '',
		text_base_url TEXT NOT NULL DEFAULT '',
		text_api_key TEXT NOT NULL DEFAULT '',
		text_model_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS system_config (
		id TEXT PRIMARY KEY,
		api_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		daily_lockdown_start_utc TEXT,
		daily_lockdown_end_utc TEXT,
		maintenance_message TEXT NOT NULL DEFAULT ''
	)`,
}

// Connect opens a pgx pool against the given URL and verifies connectivity.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
