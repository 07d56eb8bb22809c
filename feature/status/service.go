package status

import (
	"context"
	"time"

	"ledger-sync/core/domain"

	"go.uber.org/zap"
)

// Store is the subset of the mapping store the status API reads.
type Store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, sourceID string) (*domain.Mapping, error)
	Delete(ctx context.Context, sourceID string) (bool, error)
	History(ctx context.Context, limit int) ([]domain.RunRecord, error)
	RetryableErrors(ctx context.Context, entityType domain.EntityType, maxRetries int) ([]domain.RetryableError, error)
}

// StatsProvider computes sync statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (*domain.Stats, error)
}

// Service answers status queries.
type Service struct {
	store      Store
	stats      *statsCache
	maxRetries int
	logger     *zap.Logger
}

// NewService creates a status service. Stats answers are cached for ttl.
func NewService(store Store, stats StatsProvider, maxRetries int, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		stats:      newStatsCache(stats.Stats, ttl),
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Health pings the store.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Stats returns the cached statistics.
func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	return s.stats.Get(ctx)
}

// Runs returns the most recent runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	return s.store.History(ctx, limit)
}

// Errors returns the pending errors, optionally of one type.
func (s *Service) Errors(ctx context.Context, et domain.EntityType) ([]domain.RetryableError, error) {
	return s.store.RetryableErrors(ctx, et, s.maxRetries)
}

// Mapping returns one mapping, or nil when none exists.
func (s *Service) Mapping(ctx context.Context, sourceID string) (*domain.Mapping, error) {
	return s.store.Get(ctx, sourceID)
}

// DeleteMapping forgets a mapping and reports whether it existed.
func (s *Service) DeleteMapping(ctx context.Context, sourceID string) (bool, error) {
	ok, err := s.store.Delete(ctx, sourceID)
	if err != nil {
		return false, err
	}
	if ok {
		s.stats.Invalidate()
		s.logger.Info("Mapping deleted", zap.String("source_id", sourceID))
	}
	return ok, nil
}
