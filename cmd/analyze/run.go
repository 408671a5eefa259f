package main

import (
	"encoding/json"
	"fmt"

	"github.com/louisruiz/mt5-trading-analyzer/internal/config"
	"github.com/louisruiz/mt5-trading-analyzer/internal/journal"
	"github.com/louisruiz/mt5-trading-analyzer/internal/provider"
	"github.com/louisruiz/mt5-trading-analyzer/internal/service"

	"github.com/spf13/cobra"
)

type runFlags struct {
	snapshot    string
	settings    string
	seed        uint64
	strict      bool
	simulations int
	journal     string
	compact     bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze one snapshot file and print the risk report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "path to a JSON account snapshot (required)")
	cmd.Flags().StringVar(&f.settings, "settings", "", "JSON or YAML settings file (defaults when empty)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Monte Carlo seed")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail unless --seed is given")
	cmd.Flags().IntVar(&f.simulations, "simulations", 0, "Monte Carlo paths, overrides the settings file")
	cmd.Flags().StringVar(&f.journal, "journal", "", "SQLite journal for alerts and scores")
	cmd.Flags().BoolVar(&f.compact, "compact", false, "print single-line JSON")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func runAnalyze(cmd *cobra.Command, f runFlags) error {
	if f.settings != "" {
		if _, err := config.LoadSettings(f.settings); err != nil {
			return err
		}
	}

	opts := service.AnalyzeOptions{
		RequireSeed: f.strict,
		Simulations: f.simulations,
	}
	if cmd.Flags().Changed("seed") {
		seed := f.seed
		opts.Seed = &seed
	}

	var sinks service.Sinks
	if f.journal != "" {
		j, err := journal.NewSQLite(f.journal)
		if err != nil {
			return err
		}
		defer j.Close()
		sinks.History = j
	}

	svc := service.NewRiskService(
		tracer,
		provider.NewFileProvider(tracer, f.snapshot),
		config.NewSettingsSource(f.settings),
		nil,
		opts,
		sinks,
	)
	report, err := svc.RunCycle(cmd.Context())
	if err != nil {
		return err
	}

	var data []byte
	if f.compact {
		data, err = json.Marshal(report)
	} else {
		data, err = json.MarshalIndent(report, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
