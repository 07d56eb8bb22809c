package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"ledger-sync/feature/marketing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	marketingDryRun      bool
	marketingUnsubscribe bool
	marketingFormat      string
)

// marketingCmd toggles email marketing consent for every customer.
var marketingCmd = &cobra.Command{
	Use:   "marketing",
	Short: "Enable email marketing consent for all Shopify customers",
	Long: `Sets email marketing consent on every customer whose consent differs from the target.

GraphQL stores are updated in parallel batches, REST stores sequentially at the configured pace.
Failures are counted and never stop the remaining updates.`,
	RunE: runMarketing,
}

func init() {
	marketingCmd.Flags().BoolVar(&marketingDryRun, "dry-run", false, "Only count the customers that would change")
	marketingCmd.Flags().BoolVar(&marketingUnsubscribe, "unsubscribe", false, "Revoke consent instead of granting it")
	marketingCmd.Flags().StringVar(&marketingFormat, "format", formatTable, "Output format: table, json or yaml")

	RootCmd.AddCommand(marketingCmd)
}

func runMarketing(cmd *cobra.Command, args []string) error {
	if err := validFormat(marketingFormat); err != nil {
		return err
	}
	ctx := cmd.Context()

	e, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer e.close()

	src, err := e.source()
	if err != nil {
		return err
	}
	if err := src.CheckConnection(ctx); err != nil {
		return fmt.Errorf("shopify connection failed: %w", err)
	}

	job := marketing.New(src, e.cfg.Marketing, e.logger.Named("marketing"))
	res, err := job.Run(ctx, marketing.Options{DryRun: marketingDryRun, Subscribed: !marketingUnsubscribe})
	if err != nil {
		return err
	}

	if err := render(os.Stdout, marketingFormat, res, func(tw *tabwriter.Writer) {
		row(tw, "TOTAL", res.Total)
		row(tw, "ALREADY SET", res.Skipped)
		row(tw, "UPDATED", res.Updated)
		row(tw, "FAILED", res.Failed)
		row(tw, "DURATION", res.Duration.Round(time.Millisecond))
	}); err != nil {
		return err
	}
	if res.Failed > 0 {
		e.logger.Warn("Some consent updates failed", zap.Int("failed", res.Failed), zap.Strings("errors", res.Errors))
	}
	return nil
}
