package handlers

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/imamik/bringup/internal/orchestration"
	"github.com/imamik/bringup/internal/report"
)

// Plan prints the phases and operations a bring-up of the configured
// cluster would run, without contacting the cluster.
func Plan(configPath, format string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}

	// The plan does not depend on the remote side; no client is needed.
	reconciler, err := orchestration.NewReconciler(planOnly{}, cfg)
	if err != nil {
		return fmt.Errorf("failed to create reconciler: %w", err)
	}
	steps := reconciler.Plan()

	switch f {
	case report.FormatJSON:
		data, err := json.MarshalIndent(steps, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	case report.FormatYAML:
		data, err := yaml.Marshal(steps)
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		_, err = stdout.Write(data)
		return err
	default:
		fmt.Fprintf(stdout, "Bring-up plan for cluster %s (%d nodes)\n\n", cfg.Cluster.Name, len(cfg.Cluster.Nodes))
		return orchestration.WritePlan(stdout, steps)
	}
}
