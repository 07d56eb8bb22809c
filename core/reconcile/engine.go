package reconcile

import (
	"context"
	"fmt"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/metrics"

	"go.uber.org/zap"
)

// MappingStore is the part of the mapping store the engine needs.
type MappingStore interface {
	Get(ctx context.Context, sourceID string) (*domain.Mapping, error)
	Upsert(ctx context.Context, m domain.Mapping) error
	RecordError(ctx context.Context, entityType domain.EntityType, sourceID, message string) error
	ClearError(ctx context.Context, entityType domain.EntityType, sourceID string) (bool, error)
}

// Engine carries the per-run state shared by every entity handler.
type Engine struct {
	store  MappingStore
	logger *zap.Logger
	opts   Options
	now    func() time.Time
}

// NewEngine creates an engine for one run.
func NewEngine(store MappingStore, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// WithClock overrides the time source used for mapping timestamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// DryRun reports whether remote mutations and store writes are suppressed.
func (e *Engine) DryRun() bool {
	return e.opts.DryRun
}

// Logger returns the run logger.
func (e *Engine) Logger() *zap.Logger {
	return e.logger
}

// Mapping returns the stored mapping of a source id, or nil.
func (e *Engine) Mapping(ctx context.Context, sourceID string) (*domain.Mapping, error) {
	return e.store.Get(ctx, sourceID)
}

// Commit stores a successful sync of an entity and clears its pending failure.
// It is a no-op in dry-run mode.
func (e *Engine) Commit(ctx context.Context, et domain.EntityType, entity domain.Entity, destinationID, fingerprint string) error {
	if e.opts.DryRun {
		return nil
	}
	if err := e.save(ctx, et, entity, destinationID, fingerprint); err != nil {
		return err
	}
	if _, err := e.store.ClearError(ctx, et, entity.SourceID()); err != nil {
		return err
	}
	return nil
}

// Link maps an entity to an existing destination record, pushes the current source content
// through push and only then stores the fingerprint. A failed push leaves the mapping in place
// without a fingerprint so the next run retries the update instead of creating a duplicate.
func (e *Engine) Link(ctx context.Context, et domain.EntityType, entity domain.Entity, destinationID, fingerprint string, push func(ctx context.Context) error) error {
	if e.opts.DryRun {
		return nil
	}
	if err := e.save(ctx, et, entity, destinationID, ""); err != nil {
		return err
	}
	if push != nil {
		if err := push(ctx); err != nil {
			return err
		}
	}
	return e.Commit(ctx, et, entity, destinationID, fingerprint)
}

func (e *Engine) save(ctx context.Context, et domain.EntityType, entity domain.Entity, destinationID, fingerprint string) error {
	now := e.now().UTC()
	return e.store.Upsert(ctx, domain.Mapping{
		SourceID:        entity.SourceID(),
		DestinationID:   destinationID,
		EntityType:      et,
		LastSyncedAt:    &now,
		SourceUpdatedAt: entity.SourceUpdatedAt(),
		Fingerprint:     fingerprint,
	})
}

// fail records a per-entity failure in the store. Dry runs leave the retry queue untouched.
func (e *Engine) fail(ctx context.Context, et domain.EntityType, sourceID string, cause error) error {
	metrics.EntityErrorsTotal.WithLabelValues(string(et)).Inc()
	e.logger.Warn("Entity sync failed",
		zap.String("entity_type", string(et)),
		zap.String("source_id", sourceID),
		zap.Error(cause),
	)
	if e.opts.DryRun {
		return nil
	}
	if err := e.store.RecordError(ctx, et, sourceID, cause.Error()); err != nil {
		return fmt.Errorf("record failure of %s %s: %w", et, sourceID, err)
	}
	return nil
}

func (e *Engine) observe(et domain.EntityType, sourceID string, action Action) {
	metrics.EntitiesTotal.WithLabelValues(string(et), string(action)).Inc()
	e.logger.Debug("Entity reconciled",
		zap.String("entity_type", string(et)),
		zap.String("source_id", sourceID),
		zap.String("action", string(action)),
		zap.Bool("dry_run", e.opts.DryRun),
	)
}
