package preauth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

// Repository is the PostgreSQL submission ledger.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *Repository) Record(ctx context.Context, s *Submission) error {
	outcomes, err := json.Marshal(s.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to encode outcomes: %w", err)
	}

	query := `
		INSERT INTO preauth_submissions (
			id, session_id, kind, idempotency_key,
			patient_id, provider_id, insurance_id, order_id,
			authorization_created, outcomes, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		s.ID,
		s.SessionID,
		s.Kind,
		nullable(s.IdempotencyKey),
		nullable(string(s.Known.PatientID)),
		nullable(string(s.Known.ProviderID)),
		nullable(string(s.Known.InsuranceID)),
		nullable(string(s.Known.OrderID)),
		s.AuthorizationCreated,
		outcomes,
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

const submissionColumns = `id, session_id, kind, idempotency_key, patient_id, provider_id,
	insurance_id, order_id, authorization_created, outcomes, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*Submission, error) {
	var (
		s                                        Submission
		key, patient, provider, insurance, order sql.NullString
		outcomes                                 []byte
	)
	err := row.Scan(
		&s.ID,
		&s.SessionID,
		&s.Kind,
		&key,
		&patient,
		&provider,
		&insurance,
		&order,
		&s.AuthorizationCreated,
		&outcomes,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.IdempotencyKey = key.String
	s.Known = KnownIDs{
		PatientID:   upstream.ID(patient.String),
		ProviderID:  upstream.ID(provider.String),
		InsuranceID: upstream.ID(insurance.String),
		OrderID:     upstream.ID(order.String),
	}
	if len(outcomes) > 0 {
		if err := json.Unmarshal(outcomes, &s.Outcomes); err != nil {
			return nil, fmt.Errorf("failed to decode outcomes: %w", err)
		}
	}
	return &s, nil
}

func (r *Repository) List(ctx context.Context, sessionID string, params pagination.Params) ([]Submission, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM preauth_submissions WHERE session_id = $1`, sessionID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	query := `
		SELECT ` + submissionColumns + `
		FROM preauth_submissions
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	submissions := []Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating submissions: %w", err)
	}
	return submissions, total, nil
}

func (r *Repository) FindByIdempotencyKey(ctx context.Context, sessionID, key string) (*Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM preauth_submissions
		WHERE session_id = $1 AND idempotency_key = $2 AND kind = 'submit'
		ORDER BY created_at DESC
		LIMIT 1
	`
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, sessionID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find submission: %w", err)
	}
	return s, nil
}

func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM preauth_submissions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge submissions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged submissions: %w", err)
	}
	return n, nil
}
