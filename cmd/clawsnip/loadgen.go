package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/crewlinker/clawsnip/clloadgen"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newLoadgenCmd(rcfg *rootConfig) *cobra.Command {
	var endpoint, interval string

	var count, concurrency int

	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Send generated user payloads to an endpoint at a steady rate",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			var gen *clloadgen.Generator

			overrides := map[string]string{
				"CLLOADGEN_ENDPOINT": endpoint,
				"CLLOADGEN_INTERVAL": interval,
			}

			if cmd.Flags().Changed("count") {
				overrides["CLLOADGEN_COUNT"] = strconv.Itoa(count)
			}

			if cmd.Flags().Changed("concurrency") {
				overrides["CLLOADGEN_CONCURRENCY"] = strconv.Itoa(concurrency)
			}

			stop, err := startApp(cmd.Context(), rcfg, overrides, clloadgen.Provide(), fx.Populate(&gen))
			if err != nil {
				return err
			}

			defer func() { err = errors.Join(err, stop()) }()

			sum, err := gen.WithProgress(cmd.OutOrStdout()).Run(cmd.Context())
			printSummary(cmd, sum)

			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&endpoint, "endpoint", "", "url that receives the requests")
	flags.StringVar(&interval, "interval", "", "time between two requests, e.g. 100ms, 0s sends without pacing")
	flags.IntVar(&count, "count", 0, "total number of requests")
	flags.IntVar(&concurrency, "concurrency", 0, "maximum number of requests in flight")

	return cmd
}

// printSummary writes the outcome of a load generation run.
func printSummary(cmd *cobra.Command, sum clloadgen.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sent: %d, Failed: %d\n", sum.Sent, sum.Failed)

	codes := lo.Keys(sum.StatusCodes)
	slices.Sort(codes)

	for _, code := range codes {
		fmt.Fprintf(out, "Status Code %d: %d\n", code, sum.StatusCodes[code])
	}
}
