package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/feature/runner"

	"github.com/spf13/cobra"
)

var (
	syncDryRun bool
	syncForce  bool
	syncRetry  bool
	syncStats  bool
	syncFormat string
)

// syncCmd runs one reconciliation, a retry of the error queue, or prints statistics.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile customers, products and orders into Xero",
	Long: `Runs the customer, product and order phases in order.

Only entities changed since the last successful run are fetched unless --force is given.

Examples:
  # Incremental run
  sync

  # Report what would change without touching Xero or the mapping store
  sync --dry-run

  # Retry entities that failed in earlier runs
  sync --retry

  # Mapping and error counts, no credentials needed
  sync --stats --format yaml`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Report actions without remote writes or store changes")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Fetch every entity instead of only recent changes")
	syncCmd.Flags().BoolVar(&syncRetry, "retry", false, "Retry entities in the error queue")
	syncCmd.Flags().BoolVar(&syncStats, "stats", false, "Print mapping store statistics and exit")
	syncCmd.Flags().StringVar(&syncFormat, "format", formatTable, "Output format: table, json or yaml")
	syncCmd.MarkFlagsMutuallyExclusive("retry", "stats")
	syncCmd.MarkFlagsMutuallyExclusive("force", "stats")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := validFormat(syncFormat); err != nil {
		return err
	}
	ctx := cmd.Context()

	e, err := bootstrap(ctx, !syncStats)
	if err != nil {
		return err
	}
	defer e.close()

	if syncStats {
		r, err := e.runner(nil)
		if err != nil {
			return err
		}
		stats, err := r.Stats(ctx)
		if err != nil {
			return err
		}
		return render(os.Stdout, syncFormat, stats, func(tw *tabwriter.Writer) { statsTable(tw, stats) })
	}

	r, err := e.syncRunner(ctx)
	if err != nil {
		return err
	}

	opts := runner.Options{DryRun: syncDryRun || e.cfg.Sync.DryRun, Force: syncForce}
	var rep *runner.Report
	if syncRetry {
		rep, err = r.Retry(ctx, opts)
	} else {
		rep, err = r.Run(ctx, opts)
	}
	if rep != nil {
		if rerr := render(os.Stdout, syncFormat, rep, func(tw *tabwriter.Writer) { reportTable(tw, rep) }); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return err
	}
	if rep.HasErrors() {
		return fmt.Errorf("run %s finished with %d error(s)", rep.RunID, len(rep.Errors))
	}
	return nil
}

func reportTable(tw *tabwriter.Writer, rep *runner.Report) {
	mode := string(rep.Mode)
	if rep.DryRun {
		mode += " (dry run)"
	}
	row(tw, "RUN", rep.RunID)
	row(tw, "MODE", mode)
	row(tw, "STATUS", rep.Status)
	if rep.Since != nil {
		row(tw, "SINCE", rep.Since.Format(time.RFC3339))
	}
	row(tw, "DURATION", rep.Duration().Round(time.Millisecond))
	row(tw)
	row(tw, "TYPE", "CREATED", "UPDATED", "SKIPPED", "FAILED")
	for _, p := range rep.Phases {
		failed := fmt.Sprint(p.Failures)
		if p.Failed {
			failed += " (fetch)"
		}
		row(tw, p.EntityType, p.Created, p.Updated, p.Skipped, failed)
	}
	if len(rep.Errors) > 0 {
		row(tw)
		row(tw, "ERRORS")
		for _, msg := range rep.Errors {
			row(tw, "  "+msg)
		}
	}
}

func statsTable(tw *tabwriter.Writer, s *domain.Stats) {
	row(tw, "TYPE", "MAPPINGS")
	for _, et := range domain.EntityTypes {
		row(tw, et, s.Mappings[et])
	}
	row(tw, "total", s.TotalMappings())
	row(tw)
	row(tw, "PENDING ERRORS", s.PendingErrors)
	row(tw, "EXHAUSTED ERRORS", s.ExhaustedErrors)
	last := "never"
	if s.LastSuccessAt != nil {
		last = s.LastSuccessAt.Format(time.RFC3339)
	}
	row(tw, "LAST SUCCESS", last)
}
