package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS handoff_snapshots (
		session_id TEXT NOT NULL,
		key        TEXT NOT NULL,
		envelope   JSONB NOT NULL,
		written_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (session_id, key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_handoff_snapshots_written_at ON handoff_snapshots (written_at)`,
	`CREATE TABLE IF NOT EXISTS preauth_submissions (
		id                    UUID PRIMARY KEY,
		session_id            TEXT NOT NULL,
		kind                  TEXT NOT NULL CHECK (kind IN ('draft', 'submit')),
		idempotency_key       TEXT,
		patient_id            TEXT,
		provider_id           TEXT,
		insurance_id          TEXT,
		order_id              TEXT,
		authorization_created BOOLEAN NOT NULL DEFAULT false,
		outcomes              JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_preauth_submissions_session ON preauth_submissions (session_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_preauth_submissions_idempotency ON preauth_submissions (idempotency_key, created_at DESC) WHERE idempotency_key IS NOT NULL`,
}

// EnsureSchema creates the service tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}
