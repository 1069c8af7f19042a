// Package main provides the CLI entry point for carrierd, the provider
// dispatch layer's host process: it loads a carrier config file, builds a
// registry of carrier adapters behind a dispatcher and health monitor, and
// serves a JSON HTTP facade over number search, reservation, purchase, and
// porting.
//
// # Basic usage
//
//	carrierd serve --config carriers.yaml
//	carrierd config validate --config carriers.yaml
//	carrierd providers list --config carriers.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "carrierd: %v\n", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "carrierd",
		Short:        "carrierd - telecom provider dispatch layer",
		Long:         "carrierd mediates number search, reservation, purchase, and porting across telecom carriers behind a single HTTP API, with capability-aware failover and per-provider circuit breaking.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildServeCmd(), buildConfigCmd(), buildProvidersCmd())
	return rootCmd
}
