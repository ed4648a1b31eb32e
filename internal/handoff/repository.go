package handoff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository is the PostgreSQL snapshot store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, sessionID, key string, envelope []byte, writtenAt time.Time) error {
	query := `
		INSERT INTO handoff_snapshots (session_id, key, envelope, written_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, key)
		DO UPDATE SET envelope = EXCLUDED.envelope, written_at = EXCLUDED.written_at
	`

	if _, err := r.db.ExecContext(ctx, query, sessionID, key, envelope, writtenAt); err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", key, err)
	}
	return nil
}

func (r *Repository) Load(ctx context.Context, sessionID, key string) ([]byte, error) {
	query := `
		SELECT envelope
		FROM handoff_snapshots
		WHERE session_id = $1 AND key = $2
	`

	var envelope []byte
	err := r.db.QueryRowContext(ctx, query, sessionID, key).Scan(&envelope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	return envelope, nil
}

func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM handoff_snapshots WHERE written_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged snapshots: %w", err)
	}
	return n, nil
}
