package cmd

import (
	"fmt"
	"os"

	"ledger-sync/core/storage"
	"ledger-sync/feature/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportOut  string
	exportRuns int
	exportKeep int
)

// exportCmd writes the mapping store to a spreadsheet.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export mappings, errors and runs to an xlsx workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, false)
		if err != nil {
			return err
		}
		defer e.close()

		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		if err := report.NewExporter(e.store, exportRuns).Export(ctx, f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		e.logger.Info("Export written", zap.String("path", exportOut))
		return nil
	},
}

// exportPruneCmd removes old archived run reports.
var exportPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete archived run reports beyond the newest --keep",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, false)
		if err != nil {
			return err
		}
		defer e.close()

		if !e.cfg.Storage.Enabled {
			return fmt.Errorf("run report archival is disabled (storage.enabled)")
		}
		client, err := storage.NewClient(e.cfg.Storage)
		if err != nil {
			return err
		}
		removed, err := report.NewArchiver(client, e.cfg.Storage.Bucket, e.logger).Prune(ctx, exportKeep)
		if err != nil {
			return err
		}
		e.logger.Info("Archived reports pruned", zap.Int("removed", removed))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "ledger-sync.xlsx", "Output file")
	exportCmd.Flags().IntVar(&exportRuns, "runs", 100, "Number of runs to include")
	exportPruneCmd.Flags().IntVar(&exportKeep, "keep", 50, "Number of reports to keep")

	exportCmd.AddCommand(exportPruneCmd)
	RootCmd.AddCommand(exportCmd)
}
