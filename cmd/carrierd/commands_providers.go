package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/carrierdispatch/internal/carrierconfig"
)

// buildProvidersCmd creates the "providers" command group.
func buildProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect configured providers",
	}
	cmd.AddCommand(buildProvidersListCmd())
	return cmd
}

func buildProvidersListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured providers and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors, _, err := carrierconfig.Load(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(descriptors) == 0 {
				fmt.Fprintln(out, "No providers configured.")
				return nil
			}
			for _, d := range descriptors {
				regions := make([]string, 0, len(d.Regions))
				for r := range d.Regions {
					regions = append(regions, r)
				}
				features := make([]string, 0, len(d.Capabilities))
				for f, c := range d.Capabilities {
					if c.Supported {
						features = append(features, f)
					}
				}
				fmt.Fprintf(out, "%s (priority %d)\n", d.ID, d.Priority)
				fmt.Fprintf(out, "  regions: %s\n", strings.Join(regions, ", "))
				fmt.Fprintf(out, "  features: %s\n", strings.Join(features, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "carriers.yaml", "Path to provider config file")
	return cmd
}
