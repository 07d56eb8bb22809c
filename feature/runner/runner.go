package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/lock"
	"ledger-sync/core/logger"
	"ledger-sync/core/metrics"
	"ledger-sync/core/reconcile"
	"ledger-sync/feature/customers"
	"ledger-sync/feature/orders"
	"ledger-sync/feature/products"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence the run controller needs.
type Store interface {
	reconcile.MappingStore
	StartRun(ctx context.Context, runID string, dryRun bool) (*domain.RunRecord, error)
	CompleteRun(ctx context.Context, runID string, status domain.RunStatus, processed int, errs []string) error
	LastSuccessfulRun(ctx context.Context) (*domain.RunRecord, error)
	RetryableErrors(ctx context.Context, entityType domain.EntityType, maxRetries int) ([]domain.RetryableError, error)
	Stats(ctx context.Context, maxRetries int) (*domain.Stats, error)
}

// Archiver stores finished run reports.
type Archiver interface {
	Archive(ctx context.Context, rep *Report) error
}

// Options controls one run.
type Options struct {
	// DryRun reports the actions without remote mutations or store writes.
	DryRun bool
	// Force ignores the last successful run and fetches every entity.
	Force bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLocker serializes runs through l.
func WithLocker(l lock.Locker, key string, ttl time.Duration) Option {
	return func(r *Runner) {
		r.locker = l
		r.lockKey = key
		r.lockTTL = ttl
	}
}

// WithArchiver archives every finished sync run report.
func WithArchiver(a Archiver) Option {
	return func(r *Runner) { r.archiver = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithIDGenerator overrides how run ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(r *Runner) { r.newID = fn }
}

// Runner sequences the entity phases.
type Runner struct {
	store    Store
	phases   []reconcile.Phase
	cfg      Config
	logger   *zap.Logger
	locker   lock.Locker
	lockKey  string
	lockTTL  time.Duration
	archiver Archiver
	now      func() time.Time
	newID    func() string
}

// Phases builds the customer, product and order phases in run order.
func Phases(source domain.Source, dest domain.Destination, invoicePrefix string) []reconcile.Phase {
	return []reconcile.Phase{
		reconcile.NewPhase(customers.NewHandler(source, dest)),
		reconcile.NewPhase(products.NewHandler(source, dest)),
		reconcile.NewPhase(orders.NewHandler(source, dest, invoicePrefix)),
	}
}

// New creates a run controller running phases in the given order.
func New(store Store, phases []reconcile.Phase, cfg Config, l *zap.Logger, opts ...Option) *Runner {
	if l == nil {
		l = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	r := &Runner{
		store:   store,
		phases:  phases,
		cfg:     cfg,
		logger:  l,
		locker:  lock.Noop{},
		lockKey: "ledger-sync:run",
		lockTTL: 30 * time.Minute,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run performs one sync run. The returned report is non-nil once the run record exists,
// even when the run failed.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	release, err := r.locker.Acquire(ctx, r.lockKey, r.lockTTL)
	if err != nil {
		return nil, err
	}
	defer r.release(ctx, release)

	var since *time.Time
	if !opts.Force {
		last, err := r.store.LastSuccessfulRun(ctx)
		if err != nil {
			return nil, err
		}
		if last != nil {
			since = last.CompletedAt
		}
	}

	runID := r.newID()
	rec, err := r.store.StartRun(ctx, runID, opts.DryRun)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		RunID:     runID,
		Mode:      ModeSync,
		DryRun:    opts.DryRun,
		Force:     opts.Force,
		Since:     since,
		StartedAt: rec.StartedAt,
		Phases:    []*reconcile.PhaseResult{},
	}
	l := logger.WithRun(r.logger, runID)
	l.Info("Sync run started",
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("force", opts.Force),
		zap.Timep("since", since),
	)

	engine := reconcile.NewEngine(r.store, l, reconcile.Options{DryRun: opts.DryRun}).WithClock(r.now)
	runErr := r.runPhases(ctx, engine, since, rep)

	// the run must be finalized even when the caller's context is gone
	fctx := context.WithoutCancel(ctx)
	r.conclude(rep, runErr)
	if err := r.store.CompleteRun(fctx, runID, rep.Status, rep.Processed(), rep.Errors); err != nil {
		l.Error("Failed to finalize run", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	r.observe(l, rep)

	if r.archiver != nil {
		if err := r.archiver.Archive(fctx, rep); err != nil {
			l.Warn("Failed to archive run report", zap.Error(err))
		}
	}
	return rep, runErr
}

func (r *Runner) runPhases(ctx context.Context, e *reconcile.Engine, since *time.Time, rep *Report) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during sync run: %v", p)
		}
	}()

	for _, ph := range r.phases {
		res, err := ph.Run(ctx, e, since)
		if res != nil {
			rep.Phases = append(rep.Phases, res)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Retry replays the retryable entries of the error queue, oldest first within each phase.
// Retries are not recorded in the run history.
func (r *Runner) Retry(ctx context.Context, opts Options) (*Report, error) {
	release, err := r.locker.Acquire(ctx, r.lockKey, r.lockTTL)
	if err != nil {
		return nil, err
	}
	defer r.release(ctx, release)

	pending, err := r.store.RetryableErrors(ctx, "", r.cfg.MaxRetries)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		RunID:     r.newID(),
		Mode:      ModeRetry,
		DryRun:    opts.DryRun,
		StartedAt: r.now().UTC(),
		Phases:    []*reconcile.PhaseResult{},
	}
	l := logger.WithRun(r.logger, rep.RunID)
	l.Info("Retrying failed entities", zap.Int("pending", len(pending)), zap.Bool("dry_run", opts.DryRun))

	engine := reconcile.NewEngine(r.store, l, reconcile.Options{DryRun: opts.DryRun}).WithClock(r.now)
	runErr := r.retryAll(ctx, engine, pending, rep)

	r.conclude(rep, runErr)
	r.observe(l, rep)
	return rep, runErr
}

func (r *Runner) retryAll(ctx context.Context, e *reconcile.Engine, pending []domain.RetryableError, rep *Report) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during retry: %v", p)
		}
	}()

	for _, ph := range r.phases {
		et := ph.EntityType()
		res := reconcile.NewPhaseResult(et)
		rep.Phases = append(rep.Phases, res)

		for _, item := range pending {
			if item.EntityType != et {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			action, err := ph.Retry(ctx, e, item.SourceID)
			if err != nil {
				if domain.IsFatal(err) {
					return fmt.Errorf("%s %s: %w", et, item.SourceID, err)
				}
				res.Fail(fmt.Sprintf("%s %s: %v", et, item.SourceID, err))
				continue
			}
			res.Record(item.SourceID, action)
		}
	}
	return nil
}

// Stats summarizes the mapping store.
func (r *Runner) Stats(ctx context.Context) (*domain.Stats, error) {
	return r.store.Stats(ctx, r.cfg.MaxRetries)
}

// Scheduled is the job run by the scheduler. A run skipped because another one holds the
// lock is not an error.
func (r *Runner) Scheduled(ctx context.Context) {
	_, err := r.Run(ctx, Options{DryRun: r.cfg.DryRun})
	switch {
	case errors.Is(err, lock.ErrLocked):
		r.logger.Info("Scheduled run skipped, another run is in progress")
	case err != nil:
		r.logger.Error("Scheduled run failed", zap.Error(err))
	}
}

// conclude sets the final status and error list of a report.
func (r *Runner) conclude(rep *Report, runErr error) {
	rep.CompletedAt = r.now().UTC()
	if runErr != nil {
		rep.Status = domain.RunFailed
		rep.Errors = []string{runErr.Error()}
		return
	}
	rep.Errors = rep.phaseErrors()
	if len(rep.Errors) > 0 {
		rep.Status = domain.RunFailed
	} else {
		rep.Status = domain.RunSuccess
	}
}

func (r *Runner) observe(l *zap.Logger, rep *Report) {
	mode := rep.metricMode()
	metrics.RunsTotal.WithLabelValues(string(rep.Status), mode).Inc()
	metrics.RunDuration.WithLabelValues(mode).Observe(rep.Duration().Seconds())
	metrics.LastRunTimestamp.WithLabelValues(string(rep.Status)).Set(float64(rep.CompletedAt.Unix()))

	fields := []zap.Field{
		zap.String("status", string(rep.Status)),
		zap.Int("processed", rep.Processed()),
		zap.Int("errors", len(rep.Errors)),
		zap.Duration("duration", rep.Duration()),
	}
	if rep.Status == domain.RunSuccess {
		l.Info("Run finished", fields...)
	} else {
		l.Warn("Run finished with errors", fields...)
	}
}

func (r *Runner) release(ctx context.Context, release lock.Release) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		r.logger.Warn("Failed to release run lock", zap.Error(err))
	}
}
