package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"ledger-sync/core/database"
	"ledger-sync/core/lock"
	"ledger-sync/core/storage"
	"ledger-sync/core/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// checkCmd verifies connectivity and the mapping store schema.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify remote connectivity and the mapping store schema",
	Long: `Checks that Shopify and Xero accept the configured credentials, that every mapping store
table exposes the expected columns, and that Redis and object storage are reachable when enabled.`,
	RunE: runCheck,
}

func init() {
	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	e, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer e.close()
	l := e.logger

	var failed []error
	report := func(name string, err error) {
		if err != nil {
			l.Error("Check failed", zap.String("check", name), zap.Error(err))
			failed = append(failed, fmt.Errorf("%s: %w", name, err))
			return
		}
		l.Info("Check passed", zap.String("check", name))
	}

	src, err := e.source()
	if err != nil {
		return err
	}
	report("shopify", src.CheckConnection(ctx))
	report("xero", e.destination().CheckConnection(ctx))
	report("schema", checkSchema(e.store))

	if e.cfg.Redis.Enabled {
		client := lock.NewClient(e.cfg.Redis)
		report("redis", lock.NewRedis(client).Ping(ctx))
		_ = client.Close()
	}
	if e.cfg.Storage.Enabled {
		report("storage", checkBucket(ctx, e.cfg.Storage))
	}

	return errors.Join(failed...)
}

func checkSchema(s *store.Store) error {
	tables := make([]string, 0, len(store.Schema))
	for t := range store.Schema {
		tables = append(tables, t)
	}
	slices.Sort(tables)

	var errs []error
	for _, table := range tables {
		missing, err := database.MissingColumns(s.DB(), table, store.Schema[table])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(missing) > 0 {
			errs = append(errs, fmt.Errorf("table %s is missing columns %v", table, missing))
		}
	}
	return errors.Join(errs...)
}

func checkBucket(ctx context.Context, cfg storage.Config) error {
	client, err := storage.NewClient(cfg)
	if err != nil {
		return err
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist yet, it is created by the first archived run", cfg.Bucket)
	}
	return nil
}
