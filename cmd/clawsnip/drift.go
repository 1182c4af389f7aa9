package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/crewlinker/clawsnip/claws"
	"github.com/crewlinker/clawsnip/cldrift"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// driftFlags are the flags of the drift query command.
type driftFlags struct {
	ideal string
	run   bool
	tgt   cldrift.Target
}

func newDriftCmd(rcfg *rootConfig) *cobra.Command {
	drift := &cobra.Command{Use: "drift", Short: "Detect configuration drift of the inventory"}

	var dfl driftFlags

	query := &cobra.Command{
		Use:   "query",
		Short: "Build the drift query from a local ideal configuration file, and optionally run it",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			data, err := os.ReadFile(dfl.ideal)
			if err != nil {
				return fmt.Errorf("failed to read ideal configuration: %w", err)
			}

			ideal, err := cldrift.ParseIdeal(data)
			if err != nil {
				return fmt.Errorf("failed to parse ideal configuration: %w", err)
			}

			sql, err := cldrift.BuildQuery(ideal, dfl.tgt)
			if err != nil {
				return fmt.Errorf("failed to build query: %w", err)
			}

			if !dfl.run {
				fmt.Fprintln(cmd.OutOrStdout(), sql)

				return nil
			}

			var ath *cldrift.Athena

			stop, err := startApp(cmd.Context(), rcfg, map[string]string{
				"CLDRIFT_DATABASE": dfl.tgt.Database,
				"CLDRIFT_TABLE":    dfl.tgt.Table,
			}, claws.Provide(), cldrift.QueryProvide(), fx.Populate(&ath))
			if err != nil {
				return err
			}

			defer func() { err = errors.Join(err, stop()) }()

			rows, err := ath.Query(cmd.Context(), sql)
			if err != nil {
				return fmt.Errorf("failed to run query: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if err := enc.Encode(rows); err != nil {
				return fmt.Errorf("failed to encode rows: %w", err)
			}

			return nil
		},
	}

	flags := query.Flags()
	flags.StringVar(&dfl.ideal, "ideal", "ideal.json", "path to the ideal configuration file")
	flags.BoolVar(&dfl.run, "run", false, "run the query with Athena and print the misconfigured rows")
	flags.StringVar(&dfl.tgt.Database, "database", cldrift.DefaultDatabase, "athena database with the inventory")
	flags.StringVar(&dfl.tgt.Table, "table", "inventory", "athena table with the inventory")
	flags.StringVar(&dfl.tgt.SettingsGroup, "settings-group", "", "settings group to compare")
	drift.AddCommand(query)

	return drift
}
