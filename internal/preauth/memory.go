package preauth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/pagination"
)

// MemoryRepository keeps the ledger in process. Used when no database is
// configured and in tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows []Submission
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Record(_ context.Context, s *Submission) error {
	row := *s
	row.Outcomes = append([]OutcomeRecord(nil), s.Outcomes...)

	m.mu.Lock()
	m.rows = append(m.rows, row)
	m.mu.Unlock()
	return nil
}

// newestFirst returns matching rows, latest first.
func (m *MemoryRepository) newestFirst(match func(Submission) bool) []Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Submission{}
	for _, row := range m.rows {
		if match(row) {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryRepository) List(_ context.Context, sessionID string, params pagination.Params) ([]Submission, int, error) {
	rows := m.newestFirst(func(s Submission) bool { return s.SessionID == sessionID })
	start, end := params.Window(len(rows))
	return rows[start:end], len(rows), nil
}

func (m *MemoryRepository) FindByIdempotencyKey(_ context.Context, sessionID, key string) (*Submission, error) {
	rows := m.newestFirst(func(s Submission) bool {
		return s.Kind == KindSubmit && s.SessionID == sessionID && s.IdempotencyKey == key
	})
	if len(rows) == 0 {
		return nil, ErrSubmissionNotFound
	}
	return &rows[0], nil
}

func (m *MemoryRepository) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.rows[:0]
	var n int64
	for _, row := range m.rows {
		if row.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return n, nil
}
