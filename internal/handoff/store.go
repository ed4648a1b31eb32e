package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/telemetry"
)

// StoreInterface is what the workflow services need from the snapshot store.
type StoreInterface interface {
	Write(ctx context.Context, sessionID, key string, payload any) error
	Read(ctx context.Context, sessionID, key string, dst any) bool
}

var _ StoreInterface = (*Store)(nil)

// Store wraps payloads in envelopes and unwraps them on read.
type Store struct {
	repo    RepositoryInterface
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

func NewStore(repo RepositoryInterface, logger zerolog.Logger, metrics *telemetry.Metrics) *Store {
	return &Store{
		repo:    repo,
		logger:  logger.With().Str("component", "handoff").Logger(),
		metrics: metrics,
		now:     time.Now,
	}
}

// Write replaces the snapshot stored under (sessionID, key).
func (s *Store) Write(ctx context.Context, sessionID, key string, payload any) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	if key == "" {
		return ErrMissingKey
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		s.metrics.RecordHandoff(ctx, "write", key, "error")
		return fmt.Errorf("failed to encode %s payload: %w", key, err)
	}

	writtenAt := s.now().UTC()
	envelope, err := json.Marshal(Envelope{
		Version:   EnvelopeVersion,
		Key:       key,
		Payload:   raw,
		WrittenAt: writtenAt,
	})
	if err != nil {
		s.metrics.RecordHandoff(ctx, "write", key, "error")
		return fmt.Errorf("failed to encode %s envelope: %w", key, err)
	}

	if err := s.repo.Save(ctx, sessionID, key, envelope, writtenAt); err != nil {
		s.metrics.RecordHandoff(ctx, "write", key, "error")
		return err
	}

	s.metrics.RecordHandoff(ctx, "write", key, "ok")
	return nil
}

// Read decodes the snapshot under (sessionID, key) into dst and reports
// whether it was present and well formed. Storage errors, unknown envelope
// versions and malformed payloads are logged and reported as absent.
func (s *Store) Read(ctx context.Context, sessionID, key string, dst any) bool {
	if sessionID == "" || key == "" {
		return false
	}

	raw, err := s.repo.Load(ctx, sessionID, key)
	if errors.Is(err, ErrNotFound) {
		s.metrics.RecordHandoff(ctx, "read", key, "absent")
		return false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("snapshot read failed")
		s.metrics.RecordHandoff(ctx, "read", key, "error")
		return false
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("malformed snapshot envelope")
		s.metrics.RecordHandoff(ctx, "read", key, "malformed")
		return false
	}
	if env.Version != EnvelopeVersion {
		s.logger.Warn().Int("version", env.Version).Str("key", key).Msg("unsupported snapshot version")
		s.metrics.RecordHandoff(ctx, "read", key, "unsupported_version")
		return false
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		s.metrics.RecordHandoff(ctx, "read", key, "absent")
		return false
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("malformed snapshot payload")
		s.metrics.RecordHandoff(ctx, "read", key, "malformed")
		return false
	}

	s.metrics.RecordHandoff(ctx, "read", key, "ok")
	return true
}

// Purge removes snapshots written more than retention ago.
func (s *Store) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", retention)
	}
	n, err := s.repo.PurgeBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return n, nil
}
