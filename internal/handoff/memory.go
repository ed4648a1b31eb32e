package handoff

import (
	"context"
	"sync"
	"time"
)

type memoryRow struct {
	envelope  []byte
	writtenAt time.Time
}

// MemoryRepository keeps snapshots in process. Used when no database is
// configured and in tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]memoryRow
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[string]memoryRow)}
}

func rowKey(sessionID, key string) string {
	return sessionID + "\x00" + key
}

func (m *MemoryRepository) Save(_ context.Context, sessionID, key string, envelope []byte, writtenAt time.Time) error {
	buf := make([]byte, len(envelope))
	copy(buf, envelope)

	m.mu.Lock()
	m.rows[rowKey(sessionID, key)] = memoryRow{envelope: buf, writtenAt: writtenAt}
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) Load(_ context.Context, sessionID, key string) ([]byte, error) {
	m.mu.RLock()
	row, ok := m.rows[rowKey(sessionID, key)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(row.envelope))
	copy(buf, row.envelope)
	return buf, nil
}

func (m *MemoryRepository) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k, row := range m.rows {
		if row.writtenAt.Before(cutoff) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored snapshots.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
