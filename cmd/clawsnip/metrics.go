package main

import (
	"errors"
	"fmt"

	"github.com/crewlinker/clawsnip/claws"
	"github.com/crewlinker/clawsnip/clmetrics"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newMetricsCmd(rcfg *rootConfig) *cobra.Command {
	metrics := &cobra.Command{Use: "metrics", Short: "Work with CloudWatch metrics"}

	var namespace string

	count := &cobra.Command{
		Use:   "count",
		Short: "Count the metrics in CloudWatch",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			var cnt *clmetrics.Counter

			stop, err := startApp(cmd.Context(), rcfg, map[string]string{
				"CLMETRICS_NAMESPACE": namespace,
			}, claws.Provide(), clmetrics.Provide(), fx.Populate(&cnt))
			if err != nil {
				return err
			}

			defer func() { err = errors.Join(err, stop()) }()

			total, err := cnt.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to count: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Total number of metrics: %d\n", total)

			return nil
		},
	}

	count.Flags().StringVar(&namespace, "namespace", "", "only count metrics in this namespace")
	metrics.AddCommand(count)

	return metrics
}
