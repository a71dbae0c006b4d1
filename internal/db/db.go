// Package db provides PostgreSQL persistence for interpretation sessions and
// their question/answer history.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// schema is applied idempotently at startup. The UNIQUE constraint on run_id
// is the mutual-exclusion primitive for concurrent session creation.
const schema = `
CREATE TABLE IF NOT EXISTS interpretation_sessions (
	id UUID PRIMARY KEY,
	run_id UUID NOT NULL UNIQUE,
	status TEXT NOT NULL,
	current_round INT NOT NULL DEFAULT 0,
	total_questions_asked INT NOT NULL DEFAULT 0,
	diagnostics JSONB NOT NULL,
	candidate_actions JSONB,
	priority_focus JSONB,
	draft JSONB,
	rewrite_instructions JSONB,
	report JSONB,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS session_questions (
	id UUID PRIMARY KEY,
	session_id UUID NOT NULL REFERENCES interpretation_sessions(id) ON DELETE CASCADE,
	gap_id TEXT NOT NULL,
	round INT NOT NULL,
	question_type TEXT NOT NULL,
	question_text TEXT NOT NULL,
	options JSONB,
	rationale TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS session_answers (
	question_id UUID PRIMARY KEY REFERENCES session_questions(id) ON DELETE CASCADE,
	session_id UUID NOT NULL REFERENCES interpretation_sessions(id) ON DELETE CASCADE,
	answer TEXT NOT NULL,
	confidence TEXT NOT NULL DEFAULT 'normal',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_session_questions_session
	ON session_questions(session_id, round);
`

// EnsureSchema creates the tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
