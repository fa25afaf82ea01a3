// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/bringup/cmd/bringup/handlers"
)

// Root returns the root command for the bringup CLI.
func Root() *cobra.Command {
	var verbosity int

	cmd := &cobra.Command{
		Use:           "bringup",
		Short:         "Bring a managed Hadoop cluster up through its management API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			handlers.SetVerbosity(verbosity)
		},
	}
	cmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "Log verbosity (1: operation ticks, 2: API requests)")

	// Core commands
	cmd.AddCommand(Up())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Reports())

	// Utility commands
	cmd.AddCommand(Schema())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
