package repository

import (
	"context"
	"fmt"

	"github.com/tagforge/tagsync/common/db"
)

// schema is applied at startup; statements are idempotent so every
// instance can run them unconditionally.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL,
		vendor     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		user_id         TEXT NOT NULL,
		name            TEXT NOT NULL,
		data_type       TEXT NOT NULL,
		raw_data_type   TEXT NOT NULL DEFAULT '',
		address         TEXT NOT NULL DEFAULT '',
		description     TEXT NOT NULL DEFAULT '',
		default_value   TEXT NOT NULL DEFAULT '',
		vendor          TEXT NOT NULL,
		scope           TEXT NOT NULL,
		tag_type        TEXT NOT NULL,
		is_ai_generated BOOLEAN NOT NULL DEFAULT false,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL,
		UNIQUE (project_id, name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tags_project ON tags (project_id)`,
}

// EnsureSchema creates the tables and indexes the service needs.
// Run as a bootstrap DB init hook before the server starts serving.
func EnsureSchema(ctx context.Context, database *db.DB) error {
	for _, stmt := range schema {
		if _, err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema init failed: %w", err)
		}
	}
	return nil
}
