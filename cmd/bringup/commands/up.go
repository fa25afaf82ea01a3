package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/bringup/cmd/bringup/handlers"
)

// Up returns the command that brings a cluster up.
//
// Required flags:
//
//	--config, -c: Path to the cluster configuration (YAML or TOML)
//
// Environment variables:
//
//	BRINGUP_MANAGER_PASSWORD: management API password (default: admin)
//	BRINGUP_S3_*: report storage settings when --report-bucket is set
func Up() *cobra.Command {
	var opts handlers.UpOptions

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Bring the cluster up",
		Long: `Bring the cluster up.

This command prepares the nodes, registers them with the management server,
applies host templates and configuration, deploys client configuration and
starts every service, waiting for each remote operation to complete.

Re-running it is safe: hosts and templates that are already in place are
skipped.

Examples:
  # Bring the cluster up
  bringup up -c cluster.yaml

  # Serve metrics and keep a report of the run
  bringup up -c cluster.yaml --metrics-addr :9090 --report run.json

  # Upload the report to S3-compatible storage
  BRINGUP_S3_ENDPOINT=http://minio:9000 bringup up -c cluster.yaml --report-bucket bringup`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Up(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "Write the run report to this file")
	cmd.Flags().StringVar(&opts.ReportFormat, "report-format", "", "Report file format: json, yaml or text (default: from extension)")
	cmd.Flags().StringVar(&opts.ReportBucket, "report-bucket", "", "Upload the run report to this bucket")
	cmd.Flags().StringVar(&opts.ReportPrefix, "report-prefix", "", "Key prefix for uploaded reports")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
