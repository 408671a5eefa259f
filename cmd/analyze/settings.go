package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/louisruiz/mt5-trading-analyzer/internal/config"

	"github.com/spf13/cobra"
)

func newSettingsCmd() *cobra.Command {
	var (
		path          string
		writeDefaults bool
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print the resolved settings, or write a default settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if writeDefaults {
				if path == "" {
					return errors.New("--init needs --settings")
				}
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists", path)
				}
				if err := config.SaveSettings(path, config.DefaultSettings()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote default settings to %s\n", path)
				return nil
			}

			st := config.DefaultSettings()
			if path != "" {
				var err error
				if st, err = config.LoadSettings(path); err != nil {
					return err
				}
			}
			data, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			for _, e := range st.Invalid {
				fmt.Fprintf(cmd.ErrOrStderr(), "invalid: %v\n", e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "settings", "", "JSON or YAML settings file")
	cmd.Flags().BoolVar(&writeDefaults, "init", false, "write the default settings to --settings")
	return cmd
}
