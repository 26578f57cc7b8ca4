// Package migrations holds the database schema and applies it idempotently
// at startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// Statements are executed in order. Each one must be safe to re-run.
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS ht_users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		tier TEXT NOT NULL DEFAULT 'free',
		subscription_expires TIMESTAMPTZ,
		stripe_customer_id TEXT NOT NULL DEFAULT '',
		auth_provider TEXT NOT NULL DEFAULT 'email',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ht_teams (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES ht_users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		logo TEXT NOT NULL DEFAULT '',
		color_primary TEXT NOT NULL DEFAULT '',
		color_secondary TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ht_players (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES ht_users(id) ON DELETE CASCADE,
		team_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		number INTEGER NOT NULL DEFAULT 0,
		position TEXT NOT NULL DEFAULT '',
		photo TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ht_games (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES ht_users(id) ON DELETE CASCADE,
		team_id TEXT NOT NULL DEFAULT '',
		home_team_name TEXT NOT NULL,
		opponent_name TEXT NOT NULL,
		game_date TIMESTAMPTZ NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		game_type TEXT NOT NULL DEFAULT '',
		venue TEXT NOT NULL DEFAULT '',
		period_type TEXT NOT NULL DEFAULT 'quarters',
		our_score INTEGER NOT NULL DEFAULT 0,
		opponent_score INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'in_progress',
		current_period INTEGER NOT NULL DEFAULT 1,
		players JSONB NOT NULL DEFAULT '[]',
		events JSONB NOT NULL DEFAULT '[]',
		media JSONB NOT NULL DEFAULT '[]',
		scoreboard_photo TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		tags JSONB NOT NULL DEFAULT '[]',
		ai_summary TEXT NOT NULL DEFAULT '',
		revision BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS ht_highlight_reels (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES ht_users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		game_ids JSONB NOT NULL DEFAULT '[]',
		media_ids JSONB NOT NULL DEFAULT '[]',
		season TEXT NOT NULL DEFAULT '',
		ai_description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ht_games_user_date ON ht_games (user_id, game_date DESC)`,
}

// Apply runs every migration statement against the database.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
