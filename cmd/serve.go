package cmd

import (
	"context"
	"fmt"

	"ledger-sync/core/loader"
	"ledger-sync/core/logger"
	"ledger-sync/core/middleware/auth"
	"ledger-sync/core/middleware/rayid"
	"ledger-sync/core/scheduler"
	"ledger-sync/feature/runner"
	"ledger-sync/feature/status"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status API and the sync scheduler",
	Long: `Starts the HTTP status API. When sync.schedule is set, sync runs are started on that
cron schedule; a tick that overlaps a running sync is skipped.`,
	RunE: runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	scheduled := false

	e, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer e.close()
	logg := e.logger

	var r *runner.Runner
	if e.cfg.Sync.Schedule != "" {
		if err := e.cfg.ValidateRemote(); err != nil {
			return err
		}
		if r, err = e.syncRunner(ctx); err != nil {
			return err
		}
		scheduled = true
	} else if r, err = e.runner(nil); err != nil {
		return err
	}

	// 1. Scheduler
	sched := scheduler.New(logg.Named("scheduler"), ctx)
	if scheduled {
		if _, err := sched.Add(e.cfg.Sync.Schedule, r.Scheduled); err != nil {
			return fmt.Errorf("invalid sync schedule %q: %w", e.cfg.Sync.Schedule, err)
		}
		sched.Start()
		logg.Info("Scheduled sync runs", zap.String("schedule", e.cfg.Sync.Schedule))
	}

	// 2. Fiber app
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID must be first to trace everything
	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Debug("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})
	app.Use(auth.New(auth.Config{ApiKey: e.cfg.Server.ApiKey, Skip: []string{"/health"}}))

	// 3. Features
	mgr := loader.NewManager()
	mgr.Register(status.NewFeature(e.store, r, e.cfg.Sync.MaxRetries, e.cfg.Server.StatsCacheTTL, logg.Named("status")))
	loaded, err := mgr.LoadAll(app)
	if err != nil {
		return err
	}
	logg.Info("Loaded features", zap.Strings("features", loaded))

	// 4. Server
	errCh := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("address", e.cfg.Server.Address()))
		errCh <- app.Listen(e.cfg.Server.Address())
	}()

	// 5. Graceful shutdown
	select {
	case err := <-errCh:
		sched.Stop()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logg.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warn("Server shutdown incomplete", zap.Error(err))
	}
	sched.Stop()
	return nil
}
