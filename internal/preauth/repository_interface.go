package preauth

import (
	"context"
	"time"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/pagination"
)

// RepositoryInterface is the submission ledger.
type RepositoryInterface interface {
	Record(ctx context.Context, s *Submission) error
	List(ctx context.Context, sessionID string, params pagination.Params) ([]Submission, int, error)
	// FindByIdempotencyKey returns the latest submit the session recorded
	// under key, or ErrSubmissionNotFound.
	FindByIdempotencyKey(ctx context.Context, sessionID, key string) (*Submission, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	_ RepositoryInterface = (*Repository)(nil)
	_ RepositoryInterface = (*MemoryRepository)(nil)
)
