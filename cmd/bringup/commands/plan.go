package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/bringup/cmd/bringup/handlers"
)

// Plan returns the command that prints the bring-up plan.
func Plan() *cobra.Command {
	var configPath, output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the phases a bring-up would run",
		Long: `Show the phases and operations a bring-up would run, in order.

Nothing is contacted: the plan is derived from the configuration alone.

Examples:
  bringup plan -c cluster.yaml
  bringup plan -c cluster.yaml -o json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Plan(configPath, output)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
