package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"ledger-sync/core/domain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	mappingsType        string
	mappingsFormat      string
	mappingsDestination bool
)

// mappingsCmd is the parent command for mapping store inspection.
var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Inspect and edit the mapping store",
}

var mappingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mappings, optionally of one entity type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var et domain.EntityType
		if mappingsType != "" {
			parsed, err := domain.ParseEntityType(mappingsType)
			if err != nil {
				return err
			}
			et = parsed
		}
		if err := validFormat(mappingsFormat); err != nil {
			return err
		}

		e, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer e.close()

		list, err := e.store.ListAll(cmd.Context(), et)
		if err != nil {
			return err
		}
		return render(os.Stdout, mappingsFormat, list, func(tw *tabwriter.Writer) {
			row(tw, "SOURCE ID", "TYPE", "DESTINATION ID", "LAST SYNCED")
			for _, m := range list {
				row(tw, m.SourceID, m.EntityType, m.DestinationID, formatOptional(m.LastSyncedAt))
			}
		})
	},
}

var mappingsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one mapping by source id, or by Xero id with --destination",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(mappingsFormat); err != nil {
			return err
		}
		e, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer e.close()

		m, err := lookupMapping(cmd.Context(), e.store, args[0], mappingsDestination)
		if err != nil {
			return err
		}
		return render(os.Stdout, mappingsFormat, m, func(tw *tabwriter.Writer) {
			row(tw, "SOURCE ID", m.SourceID)
			row(tw, "TYPE", m.EntityType)
			row(tw, "DESTINATION ID", m.DestinationID)
			row(tw, "FINGERPRINT", m.Fingerprint)
			row(tw, "LAST SYNCED", formatOptional(m.LastSyncedAt))
			row(tw, "SOURCE UPDATED", formatOptional(m.SourceUpdatedAt))
		})
	},
}

var mappingsDeleteCmd = &cobra.Command{
	Use:   "delete <source-id>",
	Short: "Forget a mapping so the next run relinks or recreates the entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer e.close()

		ok, err := e.store.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no mapping for source id %s", args[0])
		}
		e.logger.Info("Mapping deleted", zap.String("source_id", args[0]))
		return nil
	},
}

func init() {
	mappingsCmd.PersistentFlags().StringVar(&mappingsFormat, "format", formatTable, "Output format: table, json or yaml")
	mappingsListCmd.Flags().StringVar(&mappingsType, "type", "", "Entity type: customer, product or order")
	mappingsGetCmd.Flags().BoolVar(&mappingsDestination, "destination", false, "Treat the id as a Xero id")

	mappingsCmd.AddCommand(mappingsListCmd, mappingsGetCmd, mappingsDeleteCmd)
	RootCmd.AddCommand(mappingsCmd)
}

type mappingReader interface {
	Get(ctx context.Context, sourceID string) (*domain.Mapping, error)
	GetByDestinationID(ctx context.Context, destinationID string) (*domain.Mapping, error)
}

func lookupMapping(ctx context.Context, r mappingReader, id string, byDestination bool) (*domain.Mapping, error) {
	kind, get := "source", r.Get
	if byDestination {
		kind, get = "destination", r.GetByDestinationID
	}
	m, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("no mapping for %s id %s", kind, id)
	}
	return m, nil
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
