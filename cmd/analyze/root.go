package main

import (
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"
)

var tracer = noop.NewTracerProvider().Tracer("mt5-analyzer-cli")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "analyze",
		Short: "Offline risk analysis of MT5 account snapshots",
		Long: `analyze runs the risk pipeline once over a snapshot file and prints the
report as JSON. Alerts and scores can be kept in a local SQLite journal.

Examples:
  analyze run --snapshot account.json --seed 42 --journal journal.db
  analyze alerts --journal journal.db --limit 20
  analyze scores --journal journal.db --since 168h
  analyze settings --settings config.yaml`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newAlertsCmd(), newScoresCmd(), newSettingsCmd())
	return root
}
