package store

import (
	"context"
	"fmt"
)

// Tables the check-in core needs. The partial unique index on
// collection_sessions and the pair constraint on attendance_records are
// what make duplicate opens and duplicate scans lose the race at the
// storage layer.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS collection_sessions (
		id         TEXT PRIMARY KEY,
		event_id   TEXT NOT NULL,
		purpose    TEXT NOT NULL,
		opened_by  TEXT NOT NULL,
		opened_at  TIMESTAMPTZ NOT NULL,
		closed_at  TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS collection_sessions_one_active
		ON collection_sessions (event_id, purpose)
		WHERE closed_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id          TEXT PRIMARY KEY,
		event_id    TEXT NOT NULL,
		student_id  TEXT NOT NULL,
		marked_by   TEXT NOT NULL,
		marked_at   TIMESTAMPTZ NOT NULL,
		raw_payload TEXT NOT NULL DEFAULT '',
		UNIQUE (event_id, student_id)
	)`,
	`CREATE INDEX IF NOT EXISTS attendance_records_event
		ON attendance_records (event_id, marked_at)`,
	`CREATE TABLE IF NOT EXISTS event_feedback (
		id           TEXT PRIMARY KEY,
		event_id     TEXT NOT NULL,
		student_id   TEXT NOT NULL,
		rating       INT NOT NULL,
		comment      TEXT NOT NULL DEFAULT '',
		submitted_at TIMESTAMPTZ NOT NULL,
		UNIQUE (event_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS devices (
		device_id  TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		token      TEXT PRIMARY KEY,
		device_id  TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}

// Migrate applies the schema. Every statement is idempotent so restarts
// are safe.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
