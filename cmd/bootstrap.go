package cmd

import (
	"context"
	"fmt"

	"ledger-sync/core/config"
	"ledger-sync/core/database"
	"ledger-sync/core/lock"
	"ledger-sync/core/logger"
	"ledger-sync/core/reconcile"
	"ledger-sync/core/storage"
	"ledger-sync/core/store"
	"ledger-sync/feature/report"
	"ledger-sync/feature/runner"
	"ledger-sync/feature/shopify"
	"ledger-sync/feature/xero"

	"go.uber.org/zap"
)

// env is what every command builds from the configuration.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	closers []func()
}

// bootstrap loads and validates the configuration, builds the logger and opens the
// mapping store. Remote credentials are validated only when remote is set.
func bootstrap(ctx context.Context, remote bool) (*env, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if remote {
		if err := cfg.ValidateRemote(); err != nil {
			return nil, err
		}
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := store.New(db)
	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate mapping store: %w", err)
	}

	e := &env{cfg: cfg, logger: l, store: s}
	e.closers = append(e.closers, func() { _ = l.Sync() })
	if sqlDB, err := db.DB(); err == nil {
		e.closers = append(e.closers, func() { _ = sqlDB.Close() })
	}
	return e, nil
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func (e *env) source() (shopify.Client, error) {
	return shopify.New(e.cfg.Shopify, e.logger.Named("shopify"))
}

func (e *env) destination() *xero.Client {
	return xero.New(e.cfg.Xero, e.logger.Named("xero"))
}

// checkConnections verifies both remote systems before any work starts.
func (e *env) checkConnections(ctx context.Context, src shopify.Client, dest *xero.Client) error {
	if err := src.CheckConnection(ctx); err != nil {
		return fmt.Errorf("shopify connection failed: %w", err)
	}
	if err := dest.CheckConnection(ctx); err != nil {
		return fmt.Errorf("xero connection failed: %w", err)
	}
	e.logger.Info("Remote connections verified")
	return nil
}

// runner builds the run controller. The lock and the archiver are wired only when enabled.
func (e *env) runner(phases []reconcile.Phase) (*runner.Runner, error) {
	var opts []runner.Option

	if e.cfg.Redis.Enabled {
		client := lock.NewClient(e.cfg.Redis)
		e.closers = append(e.closers, func() { _ = client.Close() })
		opts = append(opts, runner.WithLocker(lock.NewRedis(client), e.cfg.Redis.Key, e.cfg.Redis.TTL))
	}

	if e.cfg.Storage.Enabled {
		client, err := storage.NewClient(e.cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		opts = append(opts, runner.WithArchiver(report.NewArchiver(client, e.cfg.Storage.Bucket, e.logger.Named("report"))))
	}

	return runner.New(e.store, phases, e.cfg.Sync, e.logger, opts...), nil
}

// syncRunner wires the source, the destination and the run controller.
func (e *env) syncRunner(ctx context.Context) (*runner.Runner, error) {
	src, err := e.source()
	if err != nil {
		return nil, err
	}
	dest := e.destination()
	if err := e.checkConnections(ctx, src, dest); err != nil {
		return nil, err
	}
	return e.runner(runner.Phases(src, dest, e.cfg.Sync.InvoicePrefix))
}
