package reconcile

import (
	"context"
	"fmt"
	"iter"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/metrics"

	"go.uber.org/zap"
)

// Handler reconciles one entity type.
type Handler[T domain.Entity] interface {
	EntityType() domain.EntityType
	// Fetch yields source entities changed since the given time, or all of them when since is nil.
	Fetch(ctx context.Context, since *time.Time) iter.Seq2[T, error]
	// Get fetches a single source entity. It returns domain.ErrNotFound when it no longer exists.
	Get(ctx context.Context, sourceID string) (T, error)
	// Reconcile decides and applies the action for one entity.
	Reconcile(ctx context.Context, e *Engine, entity T) (Action, error)
}

// Phase runs a handler without exposing its entity type.
type Phase interface {
	EntityType() domain.EntityType
	// Run reconciles every fetched entity. Per-entity failures are recorded and skipped;
	// the returned error is non-nil only for run-fatal conditions.
	Run(ctx context.Context, e *Engine, since *time.Time) (*PhaseResult, error)
	// Retry replays one entity from the retry queue.
	Retry(ctx context.Context, e *Engine, sourceID string) (Action, error)
}

// NewPhase wraps a typed handler.
func NewPhase[T domain.Entity](h Handler[T]) Phase {
	return &phase[T]{handler: h}
}

type phase[T domain.Entity] struct {
	handler Handler[T]
}

func (p *phase[T]) EntityType() domain.EntityType {
	return p.handler.EntityType()
}

func (p *phase[T]) Run(ctx context.Context, e *Engine, since *time.Time) (*PhaseResult, error) {
	et := p.handler.EntityType()
	result := NewPhaseResult(et)
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	l := e.logger.With(zap.String("entity_type", string(et)))
	l.Info("Phase started", zap.Timep("since", since), zap.Bool("dry_run", e.opts.DryRun))

	for entity, err := range p.handler.Fetch(ctx, since) {
		if err != nil {
			if domain.IsFatal(err) || ctx.Err() != nil {
				return result, fmt.Errorf("fetch %ss: %w", et, err)
			}
			result.Failed = true
			result.Errors = append(result.Errors, fmt.Sprintf("fetch %ss: %v", et, err))
			metrics.PhaseFailuresTotal.WithLabelValues(string(et)).Inc()
			l.Error("Phase fetch failed", zap.Error(err))
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		id := entity.SourceID()
		action, err := p.handler.Reconcile(ctx, e, entity)
		if err != nil {
			if domain.IsFatal(err) {
				return result, fmt.Errorf("%s %s: %w", et, id, err)
			}
			result.Fail(fmt.Sprintf("%s %s: %v", et, id, err))
			if recErr := e.fail(ctx, et, id, err); recErr != nil {
				if domain.IsFatal(recErr) {
					return result, recErr
				}
				l.Error("Failed to record entity error", zap.Error(recErr))
			}
			continue
		}

		result.Record(id, action)
		e.observe(et, id, action)
	}

	l.Info("Phase finished",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
		zap.Bool("failed", result.Failed),
	)
	return result, nil
}

func (p *phase[T]) Retry(ctx context.Context, e *Engine, sourceID string) (Action, error) {
	et := p.handler.EntityType()

	entity, err := p.handler.Get(ctx, sourceID)
	if err != nil {
		if domain.IsNotFound(err) {
			// the source record is gone, nothing left to retry
			if !e.opts.DryRun {
				if _, clearErr := e.store.ClearError(ctx, et, sourceID); clearErr != nil {
					return "", clearErr
				}
			}
			return ActionSkipped, nil
		}
		if domain.IsFatal(err) {
			return "", err
		}
		if recErr := e.fail(ctx, et, sourceID, err); recErr != nil {
			return "", recErr
		}
		return "", err
	}

	action, err := p.handler.Reconcile(ctx, e, entity)
	if err != nil {
		if domain.IsFatal(err) {
			return "", err
		}
		if recErr := e.fail(ctx, et, sourceID, err); recErr != nil {
			return "", recErr
		}
		return "", err
	}

	if !e.opts.DryRun {
		if _, err := e.store.ClearError(ctx, et, sourceID); err != nil {
			return "", err
		}
	}
	e.observe(et, sourceID, action)
	return action, nil
}
