package postgres

import (
	"context"
	"fmt"
)

// schemaStatements are applied in order at startup. Each statement is
// idempotent so repeated boots are safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pipelines (
		pipeline_id TEXT NOT NULL,
		version BIGINT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		steps JSONB NOT NULL DEFAULT '[]',
		variables JSONB NOT NULL DEFAULT '{}',
		tags JSONB NOT NULL DEFAULT '[]',
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (pipeline_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		job_id TEXT PRIMARY KEY,
		pipeline_id TEXT NOT NULL,
		pipeline_version BIGINT NOT NULL,
		status TEXT NOT NULL,
		priority INT NOT NULL DEFAULT 0,
		progress INT NOT NULL DEFAULT 0,
		variables JSONB NOT NULL DEFAULT '{}',
		triggered_by TEXT NOT NULL,
		schedule_id TEXT,
		retry_of TEXT,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		metrics JSONB NOT NULL DEFAULT '{}',
		error_message TEXT,
		error_details JSONB,
		output_graph TEXT,
		steps JSONB NOT NULL DEFAULT '[]',
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_pipeline_idx ON jobs (pipeline_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs (status)`,
	`CREATE TABLE IF NOT EXISTS job_logs (
		log_id BIGSERIAL PRIMARY KEY,
		job_id TEXT NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		level TEXT NOT NULL,
		step TEXT,
		message TEXT NOT NULL,
		details JSONB NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS job_logs_job_idx ON job_logs (job_id, ts)`,
	`CREATE TABLE IF NOT EXISTS job_schedules (
		schedule_id TEXT PRIMARY KEY,
		pipeline_id TEXT NOT NULL,
		cron_expression TEXT NOT NULL,
		variables JSONB NOT NULL DEFAULT '{}',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_run TIMESTAMPTZ,
		next_run TIMESTAMPTZ,
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shapes (
		shape_id TEXT NOT NULL,
		version BIGINT NOT NULL,
		uri TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		content_format TEXT NOT NULL,
		target_class TEXT,
		category TEXT,
		tags JSONB NOT NULL DEFAULT '[]',
		is_template BOOLEAN NOT NULL DEFAULT FALSE,
		properties JSONB NOT NULL DEFAULT '[]',
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (shape_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS data_sources (
		source_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		format TEXT NOT NULL,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		row_count BIGINT NOT NULL DEFAULT 0,
		column_count INT NOT NULL DEFAULT 0,
		schema JSONB NOT NULL DEFAULT '[]',
		storage_path TEXT NOT NULL,
		encoding TEXT,
		delimiter TEXT,
		has_header BOOLEAN NOT NULL DEFAULT TRUE,
		analyzed_at TIMESTAMPTZ,
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS triplestore_connections (
		connection_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		query_endpoint TEXT NOT NULL,
		update_endpoint TEXT,
		username TEXT,
		password TEXT,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		event_id BIGSERIAL PRIMARY KEY,
		occurred_at TIMESTAMPTZ NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		request_id TEXT,
		detail JSONB NOT NULL DEFAULT '{}',
		integrity_sha256 TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS audit_events_occurred_idx ON audit_events (occurred_at DESC)`,
}

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
