package cmd

import (
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyFormat string
)

// historyCmd lists recent runs.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sync runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(historyFormat); err != nil {
			return err
		}
		e, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer e.close()

		runs, err := e.store.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return render(os.Stdout, historyFormat, runs, func(tw *tabwriter.Writer) {
			row(tw, "RUN ID", "STATUS", "DRY RUN", "PROCESSED", "ERRORS", "STARTED", "DURATION")
			for _, r := range runs {
				duration := "-"
				if r.CompletedAt != nil {
					duration = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
				}
				row(tw, r.RunID, r.Status, r.DryRun, r.EntitiesProcessed, len(r.Errors), r.StartedAt.Format(time.RFC3339), duration)
			}
		})
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show")
	historyCmd.Flags().StringVar(&historyFormat, "format", formatTable, "Output format: table, json or yaml")

	RootCmd.AddCommand(historyCmd)
}
