package orchestration

import (
	"fmt"
	"io"
	"strings"

	"github.com/imamik/bringup/internal/bringup"
)

// PlanStep describes one phase without executing it.
type PlanStep struct {
	Phase      string   `json:"phase" yaml:"phase"`
	Parallel   bool     `json:"parallel,omitempty" yaml:"parallel,omitempty"`
	Operations []string `json:"operations" yaml:"operations"`
}

// Plan returns the phases Reconcile would run.
func (r *Reconciler) Plan() []PlanStep {
	return Describe(r.Phases())
}

// Describe lists phases and their operation names.
func Describe(phases []bringup.Phase) []PlanStep {
	steps := make([]PlanStep, 0, len(phases))
	for _, p := range phases {
		step := PlanStep{Phase: p.Name, Parallel: p.Parallel, Operations: make([]string, 0, len(p.Operations))}
		for _, op := range p.Operations {
			step.Operations = append(step.Operations, op.Name())
		}
		steps = append(steps, step)
	}
	return steps
}

// WritePlan prints steps as a numbered list.
func WritePlan(w io.Writer, steps []PlanStep) error {
	var b strings.Builder
	for i, s := range steps {
		mode := ""
		if s.Parallel {
			mode = " (parallel)"
		}
		fmt.Fprintf(&b, "%2d. %s%s\n", i+1, s.Phase, mode)
		for _, op := range s.Operations {
			fmt.Fprintf(&b, "      - %s\n", op)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
