// Metricsd exposes a process's telemetry to Prometheus scrapers.
//
// The serve command starts the metrics endpoint together with a small host
// workload (uptime and heartbeat metrics) and runs until SIGINT or SIGTERM.
//
// Configuration is loaded from ~/.config/metricsd/config.yaml (or --config)
// and METRICSD_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Serve on the configured address
//	metricsd serve
//
//	# Override the bind address
//	metricsd serve --address 0.0.0.0:9100
//
//	# Configure via environment
//	METRICSD_LOGGING_LEVEL=debug metricsd serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "metricsd",
		Short: "Prometheus metrics endpoint for a host process",
		Long: `metricsd serves a process's telemetry over plain HTTP in the Prometheus
text exposition format. Every request gets the current snapshot.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

type serveFlags struct {
	configPath string
	address    string
}

func (f *serveFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "config file (default ~/.config/metricsd/config.yaml)")
	fs.StringVar(&f.address, "address", "", "bind address, overrides metrics.address")
}

func newServeCmd() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the metrics endpoint",
		Long: `Start the metrics endpoint and block until interrupted.

Examples:
  # Serve with defaults (127.0.0.1:9100)
  metricsd serve

  # Use a specific config file
  metricsd serve --config /etc/metricsd/config.yaml

  # Listen on all interfaces
  metricsd serve --address 0.0.0.0:9100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "metricsd by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
