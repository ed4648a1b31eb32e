package handoff

import (
	"context"
	"time"
)

// RepositoryInterface persists raw envelopes keyed by session and key.
type RepositoryInterface interface {
	Save(ctx context.Context, sessionID, key string, envelope []byte, writtenAt time.Time) error
	Load(ctx context.Context, sessionID, key string) ([]byte, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	_ RepositoryInterface = (*Repository)(nil)
	_ RepositoryInterface = (*MemoryRepository)(nil)
)
