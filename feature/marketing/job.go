package marketing

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config holds the bulk job settings.
type Config struct {
	// BatchSize bounds the updates in flight in one batch.
	BatchSize int `mapstructure:"batch_size" default:"50" validate:"min=1"`
	// BatchPause is the pause between two batches.
	BatchPause time.Duration `mapstructure:"batch_pause" default:"500ms"`
	// RequestsPerSecond paces sequential updates. Zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"2"`
}

// Source is what the job needs from the source adapter.
type Source interface {
	Customers(ctx context.Context, since *time.Time) iter.Seq2[*domain.Customer, error]
	domain.ConsentUpdater
}

// Options controls one run of the job.
type Options struct {
	// DryRun only counts the customers that would change.
	DryRun bool
	// Subscribed is the consent state to set.
	Subscribed bool
}

// Result is the outcome of one run of the job.
type Result struct {
	Total    int           `json:"total" yaml:"total"`
	Skipped  int           `json:"skipped" yaml:"skipped"`
	Updated  int           `json:"updated" yaml:"updated"`
	Failed   int           `json:"failed" yaml:"failed"`
	Errors   []string      `json:"errors" yaml:"errors"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Option configures a Job.
type Option func(*Job)

// WithSleep overrides how the pause between batches is waited for.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(j *Job) { j.sleep = fn }
}

// Job updates marketing consent in bulk.
type Job struct {
	source Source
	cfg    Config
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates the bulk job.
func New(source Source, cfg Config, l *zap.Logger, opts ...Option) *Job {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if l == nil {
		l = zap.NewNop()
	}
	j := &Job{source: source, cfg: cfg, logger: l, sleep: sleepContext}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Run updates every customer whose consent differs from opts.Subscribed. The returned error
// is non-nil only when the customers could not be listed or the source rejected the
// credentials.
func (j *Job) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	res := &Result{Errors: []string{}}
	defer func() { res.Duration = time.Since(start) }()

	var todo []*domain.Customer
	for c, err := range j.source.Customers(ctx, nil) {
		if err != nil {
			return res, fmt.Errorf("fetch customers: %w", err)
		}
		res.Total++
		if c.MarketingSubscribed == opts.Subscribed {
			res.Skipped++
			continue
		}
		todo = append(todo, c)
	}
	metrics.BulkUpdatesTotal.WithLabelValues("skipped").Add(float64(res.Skipped))

	j.logger.Info("Marketing consent update planned",
		zap.Int("total", res.Total),
		zap.Int("to_update", len(todo)),
		zap.Int("already_set", res.Skipped),
		zap.Bool("subscribed", opts.Subscribed),
		zap.Bool("dry_run", opts.DryRun),
	)

	if opts.DryRun {
		for _, c := range todo {
			j.logger.Info("Would update marketing consent", zap.String("customer_id", c.ID), zap.String("email", c.Email))
		}
		res.Updated = len(todo)
		return res, nil
	}

	var err error
	if cw, ok := j.source.(domain.ConcurrentWriter); ok && cw.ConcurrentWrites() {
		err = j.runBatches(ctx, todo, opts.Subscribed, res)
	} else {
		err = j.runSequential(ctx, todo, opts.Subscribed, res)
	}

	j.logger.Info("Marketing consent update finished",
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	return res, err
}

func (j *Job) runBatches(ctx context.Context, todo []*domain.Customer, subscribed bool, res *Result) error {
	var mu sync.Mutex
	var fatal error

	for start := 0; start < len(todo); start += j.cfg.BatchSize {
		if start > 0 {
			if err := j.sleep(ctx, j.cfg.BatchPause); err != nil {
				return err
			}
		}
		batch := todo[start:min(start+j.cfg.BatchSize, len(todo))]

		var g errgroup.Group
		g.SetLimit(j.cfg.BatchSize)
		for _, c := range batch {
			g.Go(func() error {
				err := j.source.UpdateEmailMarketing(ctx, c.ID, subscribed)
				mu.Lock()
				defer mu.Unlock()
				j.record(res, c, err)
				if err != nil && domain.IsFatal(err) && fatal == nil {
					fatal = err
				}
				return nil
			})
		}
		_ = g.Wait()

		j.logger.Debug("Marketing batch done",
			zap.Int("batch_start", start),
			zap.Int("batch_size", len(batch)),
		)
		if fatal != nil {
			return fatal
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job) runSequential(ctx context.Context, todo []*domain.Customer, subscribed bool, res *Result) error {
	limit := rate.Inf
	if j.cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(j.cfg.RequestsPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	for _, c := range todo {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		err := j.source.UpdateEmailMarketing(ctx, c.ID, subscribed)
		j.record(res, c, err)
		if err != nil && domain.IsFatal(err) {
			return err
		}
	}
	return nil
}

func (j *Job) record(res *Result, c *domain.Customer, err error) {
	if err != nil {
		res.Failed++
		res.Errors = append(res.Errors, fmt.Sprintf("customer %s: %v", c.ID, err))
		metrics.BulkUpdatesTotal.WithLabelValues("failed").Inc()
		j.logger.Warn("Marketing consent update failed", zap.String("customer_id", c.ID), zap.Error(err))
		return
	}
	res.Updated++
	metrics.BulkUpdatesTotal.WithLabelValues("updated").Inc()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
