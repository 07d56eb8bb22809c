package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ledger-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configDir string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "ledger-sync",
	Short: "Shopify to Xero reconciliation",
	Long: `ledger-sync keeps Xero contacts, items and invoices in step with Shopify customers,
products and orders. Every run is idempotent: a persistent mapping store and content
fingerprints prevent duplicates and skip unchanged records.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// We use "debug" level configuration to get ISO8601 timestamps (DevConfig) instead of Epoch (ProdConfig)
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory holding .env and config.yaml")
}
