package bringup

import "fmt"

// Phase is a named, ordered group of operations.
type Phase struct {
	Name       string
	Operations []Operation

	// Parallel polls the operations concurrently. They must be independent.
	Parallel bool

	// Precondition gates the phase. Nil means every earlier phase succeeded.
	Precondition Precondition
}

// Precondition is evaluated against the run before a phase starts.
type Precondition func(run *Run) error

// AllPriorSucceeded is the default precondition.
func AllPriorSucceeded(run *Run) error {
	for _, p := range run.Phases {
		if p.Status != PhaseSucceeded {
			return fmt.Errorf("%w: phase %q is %s", ErrPreconditionUnmet, p.Name, p.Status)
		}
	}
	return nil
}

// RequirePhases returns a precondition that holds when each named phase has
// run and succeeded.
func RequirePhases(names ...string) Precondition {
	return func(run *Run) error {
		for _, name := range names {
			p, ok := run.Phase(name)
			if !ok {
				return fmt.Errorf("%w: phase %q has not run", ErrPreconditionUnmet, name)
			}
			if p.Status != PhaseSucceeded {
				return fmt.Errorf("%w: phase %q is %s", ErrPreconditionUnmet, name, p.Status)
			}
		}
		return nil
	}
}

// RequireOutput returns a precondition that holds when the run has recorded
// the named output, even if it is empty.
func RequireOutput(key string) Precondition {
	return func(run *Run) error {
		if !run.HasOutput(key) {
			return fmt.Errorf("%w: output %q not recorded", ErrPreconditionUnmet, key)
		}
		return nil
	}
}
