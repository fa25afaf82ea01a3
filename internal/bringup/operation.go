package bringup

import (
	"context"
	"strings"

	"github.com/imamik/bringup/internal/util/poll"
)

// Submission is what an operation's Submit step produced.
type Submission struct {
	// Handle to poll. NoHandle means the call completed synchronously.
	Handle Handle
	// Skipped is set when there was nothing to do; no remote call was made.
	Skipped bool
	// Note is a short human-readable description of what was submitted.
	Note string
	// Outputs are merged into Run.Outputs once the operation succeeds.
	Outputs map[string][]string
}

// Submitted returns a Submission for an asynchronous remote operation.
func Submitted(h Handle) Submission { return Submission{Handle: h} }

// Completed returns a Submission for a call that finished synchronously.
func Completed(note string) Submission { return Submission{Note: note} }

// Skip returns a Submission for an operation that had nothing to do.
func Skip(note string) Submission { return Submission{Skipped: true, Note: note} }

// Operation is a single step of a phase.
//
// Exactly one of Submit and Watch is set. Submit performs a remote call and
// returns a handle that is then polled with the status predicate. Watch is
// used for pure condition waits and is polled directly.
type Operation struct {
	Kind   Kind
	Target string

	Submit func(ctx context.Context, run *Run) (Submission, error)
	Watch  func(ctx context.Context) (poll.Result, error)

	// Poll overrides the runner's default poll spec; zero fields inherit.
	Poll poll.Spec

	// Override, when set, turns a matching remote failure into success.
	Override *Override
}

// Name is used for logs, metrics and poll errors.
func (o Operation) Name() string {
	if o.Target == "" {
		return string(o.Kind)
	}
	return string(o.Kind) + " " + o.Target
}

// Override reclassifies a remote failure whose message matches as success.
type Override struct {
	// Name identifies the override in logs and reports.
	Name string
	// Substring is matched against the remote result message.
	Substring string
}

// AcceptMessage returns an override that accepts failures whose message
// contains substr.
func AcceptMessage(name, substr string) *Override {
	return &Override{Name: name, Substring: substr}
}

// Matches reports whether message is covered by the override.
func (o *Override) Matches(message string) bool {
	if o == nil || o.Substring == "" {
		return false
	}
	return strings.Contains(message, o.Substring)
}

// StatusPredicate classifies a RemoteStatus:
//
//	active              -> pending
//	!active && success  -> succeeded
//	!active && !success -> failed(message), or succeeded when override matches
func StatusPredicate(override *Override) poll.Predicate[RemoteStatus] {
	return func(s RemoteStatus) poll.Result {
		switch {
		case s.Active:
			return poll.StillPending()
		case s.Success:
			return poll.Success()
		case override.Matches(s.Message):
			return poll.Success()
		default:
			return poll.Failure(s.Message)
		}
	}
}
