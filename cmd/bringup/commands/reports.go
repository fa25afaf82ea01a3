package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/bringup/cmd/bringup/handlers"
)

// Reports returns the command group for uploaded run reports.
func Reports() *cobra.Command {
	var opts handlers.ReportsOptions

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect run reports uploaded to S3-compatible storage",
		Long: `Inspect run reports uploaded with 'bringup up --report-bucket'.

Storage settings are read from BRINGUP_S3_ENDPOINT, BRINGUP_S3_REGION,
BRINGUP_S3_ACCESS_KEY and BRINGUP_S3_SECRET_KEY.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Bucket, "bucket", "", "Bucket holding the reports")
	cmd.PersistentFlags().StringVar(&opts.Prefix, "prefix", "", "Key prefix of the reports")
	_ = cmd.MarkPersistentFlagRequired("bucket")

	cmd.AddCommand(reportsList(&opts))
	cmd.AddCommand(reportsShow(&opts))
	return cmd
}

func reportsList(opts *handlers.ReportsOptions) *cobra.Command {
	var cluster string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ListReports(cmd.Context(), *opts, cluster)
		},
	}
	cmd.Flags().StringVar(&cluster, "cluster", "", "Only list reports of this cluster")
	return cmd
}

func reportsShow(opts *handlers.ReportsOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Print an uploaded report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ShowReport(cmd.Context(), *opts, args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}
