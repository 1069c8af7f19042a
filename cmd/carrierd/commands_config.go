package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/carrierdispatch/internal/carrierconfig"
)

// buildConfigCmd creates the "config" command group.
func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate provider configuration",
	}
	cmd.AddCommand(buildConfigValidateCmd())
	return cmd
}

func buildConfigValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the provider config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors, policy, err := carrierconfig.Load(configPath)
			if err != nil {
				return fmt.Errorf("config invalid: %w", err)
			}
			if err := carrierconfig.Validate(descriptors); err != nil {
				return fmt.Errorf("config invalid: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "OK: %d provider(s) configured\n", len(descriptors))
			for _, d := range descriptors {
				status := "enabled"
				if !d.Enabled {
					status = "disabled"
				}
				fmt.Fprintf(out, "  - %s (priority %d, %s)\n", d.ID, d.Priority, status)
			}
			fmt.Fprintf(out, "failover: maxRetries=%d healthCheckIntervalMs=%d\n", policy.MaxRetries, policy.HealthCheckIntervalMs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "carriers.yaml", "Path to provider config file")
	return cmd
}
