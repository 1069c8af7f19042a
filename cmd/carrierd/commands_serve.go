package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts the dispatch
// layer's HTTP facade.
//
// The server will:
//  1. Load the provider descriptor set and failover policy from config
//  2. Build adapters for every enabled provider
//  3. Start the background health monitor
//  4. Serve the JSON HTTP API for number search, reservation, purchase, and
//     porting, plus /v1/health and /v1/metrics
//
// Graceful shutdown is handled on SIGINT/SIGTERM.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dispatch layer's HTTP server",
		Example: `  # Start with default config
  carrierd serve --config carriers.yaml

  # Start on a specific address
  carrierd serve --config carriers.yaml --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, addr, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "carriers.yaml", "Path to provider config file")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
