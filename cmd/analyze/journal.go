package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/journal"

	"github.com/spf13/cobra"
)

func newAlertsCmd() *cobra.Command {
	var (
		path  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List journaled alerts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(path)
			if err != nil {
				return err
			}
			defer j.Close()

			list, err := j.RecentAlerts(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("query alerts: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No alerts.")
				return nil
			}
			for _, a := range list {
				fmt.Fprintf(out, "%s  %-8s  %-20s  %s\n",
					a.Timestamp.Format(time.RFC3339), strings.ToUpper(string(a.Severity)), a.Kind, a.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "journal", "journal.db", "SQLite journal path")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of alerts")
	return cmd
}

func newScoresCmd() *cobra.Command {
	var (
		path  string
		since time.Duration
	)
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Show the journaled risk score history, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(path)
			if err != nil {
				return err
			}
			defer j.Close()

			points, err := j.ScoreHistory(cmd.Context(), time.Now().Add(-since))
			if err != nil {
				return fmt.Errorf("query scores: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(points) == 0 {
				fmt.Fprintln(out, "No scores.")
				return nil
			}
			for _, p := range points {
				fmt.Fprintf(out, "%s  cycle %-5d  %5.1f  %s\n", p.ComputedAt.Format(time.RFC3339), p.Cycle, p.Score, p.Band)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "journal", "journal.db", "SQLite journal path")
	cmd.Flags().DurationVar(&since, "since", 7*24*time.Hour, "how far back to look")
	return cmd
}
