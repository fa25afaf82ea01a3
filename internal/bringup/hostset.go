package bringup

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/imamik/bringup/internal/util/poll"
)

// HostSet builds an idempotent operation over a set of identifiers.
//
// On every submission the target is Desired minus Present, so running the
// operation again after a partial success only touches what is missing. An
// empty target skips the remote call.
type HostSet struct {
	Kind   Kind
	Target string

	// Desired returns every identifier the operation should cover.
	Desired func(ctx context.Context, run *Run) (sets.Set[string], error)
	// Present returns the identifiers already in the desired state. Optional.
	Present func(ctx context.Context, run *Run) (sets.Set[string], error)
	// Apply submits the operation for ids, which are sorted and non-empty.
	Apply func(ctx context.Context, ids []string) (Handle, error)

	// Output, when set, records the applied ids in the run on success.
	// An empty set is recorded when nothing had to be done.
	Output string

	Poll     poll.Spec
	Override *Override
}

// Operation returns the Operation that executes h.
func (h HostSet) Operation() Operation {
	return Operation{
		Kind:     h.Kind,
		Target:   h.Target,
		Poll:     h.Poll,
		Override: h.Override,
		Submit: func(ctx context.Context, run *Run) (Submission, error) {
			todo, err := h.Pending(ctx, run)
			if err != nil {
				return Submission{}, err
			}
			if todo.Len() == 0 {
				sub := Skip("nothing to do")
				if h.Output != "" {
					sub.Outputs = map[string][]string{h.Output: nil}
				}
				return sub, nil
			}

			ids := sets.List(todo)
			handle, err := h.Apply(ctx, ids)
			if err != nil {
				return Submission{}, err
			}
			sub := Submitted(handle)
			sub.Note = fmt.Sprintf("%d item(s): %v", len(ids), ids)
			if h.Output != "" {
				sub.Outputs = map[string][]string{h.Output: ids}
			}
			return sub, nil
		},
	}
}

// Pending returns Desired minus Present.
func (h HostSet) Pending(ctx context.Context, run *Run) (sets.Set[string], error) {
	desired, err := h.Desired(ctx, run)
	if err != nil {
		return nil, err
	}
	if h.Present == nil {
		return desired, nil
	}
	present, err := h.Present(ctx, run)
	if err != nil {
		return nil, err
	}
	return desired.Difference(present), nil
}
