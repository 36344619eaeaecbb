package db

import "context"

// schemaVersion is advanced here whenever the statements below change.
// EnsureSchema is idempotent: every statement is safe to re-run against an
// already-migrated database.
const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id BIGSERIAL PRIMARY KEY,
		repository_id TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		last_run_at TIMESTAMPTZ,
		runs INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS job_runs (
		id BIGSERIAL PRIMARY KEY,
		job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		error_message TEXT,
		prompt TEXT,
		prompt_tokens INTEGER,
		completion_tokens INTEGER,
		cost_usd DOUBLE PRECISION,
		latency_ms BIGINT,
		raw_response TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS job_runs_job_id_idx ON job_runs(job_id)`,
	`CREATE TABLE IF NOT EXISTS tag_assignments (
		id BIGSERIAL PRIMARY KEY,
		job_run_id BIGINT NOT NULL REFERENCES job_runs(id) ON DELETE CASCADE,
		scope TEXT NOT NULL,
		target TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		confidence DOUBLE PRECISION,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS tag_assignments_job_run_id_idx ON tag_assignments(job_run_id)`,
	`CREATE INDEX IF NOT EXISTS tag_assignments_target_idx ON tag_assignments(target)`,
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tagging tables if they do not already exist and
// records the current schema version. Mirrors the teacher's startup-time
// EnsureAdminUser sequencing: a short fixed set of idempotent statements
// run once before the HTTP/worker listeners come up.
func EnsureSchema(ctx context.Context, pool Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	_, err := pool.Exec(ctx,
		`INSERT INTO schema_migrations(version) VALUES ($1) ON CONFLICT (version) DO NOTHING`,
		schemaVersion,
	)
	return err
}
