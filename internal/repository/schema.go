package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS content_items (
		id TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		hashtags TEXT[] NOT NULL DEFAULT '{}',
		images TEXT[] NOT NULL DEFAULT '{}',
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS queue_entries (
		id TEXT PRIMARY KEY,
		content_id TEXT NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL,
		platform TEXT NOT NULL,
		status TEXT NOT NULL,
		scheduled_at TIMESTAMPTZ NOT NULL,
		priority INT NOT NULL DEFAULT 0,
		retry_count INT NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS queue_entries_due_idx ON queue_entries (status, scheduled_at)`,
	`CREATE TABLE IF NOT EXISTS post_results (
		id BIGSERIAL PRIMARY KEY,
		content_id TEXT NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
		queue_entry_id TEXT NOT NULL DEFAULT '',
		platform TEXT NOT NULL,
		status TEXT NOT NULL,
		destination_id TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		error_code TEXT NOT NULL DEFAULT '',
		retry_count INT NOT NULL DEFAULT 0,
		published_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS post_results_content_idx ON post_results (content_id, platform, created_at)`,
	`CREATE TABLE IF NOT EXISTS platform_connections (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		platform TEXT NOT NULL,
		auth_method TEXT NOT NULL,
		account_id TEXT NOT NULL DEFAULT '',
		account_name TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		session_data TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL DEFAULT '',
		token_expires_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, platform)
	)`,
}

// EnsureSchema creates the tables the repositories use when they are missing.
// It is safe to call on every start.
func EnsureSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("applying schema statement %d failed: %w", i+1, err)
		}
	}
	return nil
}
