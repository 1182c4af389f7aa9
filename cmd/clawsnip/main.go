// Package main provides the clawsnip command line for running the automations from a workstation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/crewlinker/clawsnip/clbuildinfo"
	"github.com/crewlinker/clawsnip/clenv"
	"github.com/crewlinker/clawsnip/clzap"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// Version is set at build time.
var Version = "v0.0.0-dev"

// rootConfig holds the flags shared by all commands.
type rootConfig struct {
	envFiles []string
	logLevel string
	appOpts  []fx.Option
}

// newRootCmd builds the command tree, the options are added to the app of every command.
func newRootCmd(appOpts ...fx.Option) *cobra.Command {
	rcfg := rootConfig{appOpts: appOpts}

	root := &cobra.Command{
		Use:           "clawsnip",
		Short:         "Snippets for automating AWS accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return clenv.LoadOptional(envFiles(cmd.Context(), rcfg.envFiles)...)
		},
	}

	flags := root.PersistentFlags()
	flags.StringSliceVar(&rcfg.envFiles, "env-file", []string{".env"}, "files to load environment variables from")
	flags.StringVar(&rcfg.logLevel, "log-level", "warn", "minimum level of the log output")

	root.AddCommand(
		newMetricsCmd(&rcfg),
		newLoadgenCmd(&rcfg),
		newDriftCmd(&rcfg),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), clbuildinfo.New(Version).Version())
			},
		},
	)

	return root
}

// envFiles returns the env files followed by the same files in the git root, so a .env in the working
// directory takes precedence over the one of the repository. Outside a repository the files are returned as is.
func envFiles(ctx context.Context, names []string) []string {
	rooted, err := clenv.InGitRoot(ctx, names...)
	if err != nil {
		return names
	}

	return append(slices.Clone(names), rooted...)
}

// environment returns the process environment with the overrides from flags applied. Empty overrides
// are skipped so flags only win when they are set.
func environment(rcfg *rootConfig, overrides map[string]string) map[string]string {
	envm := map[string]string{
		"CLZAP_CONSOLE_ENCODING": "true",
		"CLZAP_LEVEL":            rcfg.logLevel,
	}

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envm[k] = v
		}
	}

	for k, v := range overrides {
		if v != "" {
			envm[k] = v
		}
	}

	return envm
}

// startApp builds and starts the dependencies of a command. The returned function stops the app.
func startApp(
	ctx context.Context, rcfg *rootConfig, overrides map[string]string, opts ...fx.Option,
) (func() error, error) {
	app := fx.New(append(append(opts, rcfg.appOpts...),
		fx.Supply(env.Options{Environment: environment(rcfg, overrides)}),
		clzap.Fx(),
		clzap.Provide(),
	)...)

	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}

	return func() error {
		if err := app.Stop(context.Background()); err != nil {
			return fmt.Errorf("failed to stop: %w", err)
		}

		return nil
	}, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1) //nolint:gocritic
	}
}
