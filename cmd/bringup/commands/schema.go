package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/bringup/cmd/bringup/handlers"
)

// Schema returns the command that prints the configuration JSON schema.
func Schema() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Schema()
		},
	}
}
