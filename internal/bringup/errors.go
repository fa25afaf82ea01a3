package bringup

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/bringup/internal/util/poll"
)

// ErrLookup is matched by every *LookupError.
var ErrLookup = errors.New("lookup failed")

// ErrPreconditionUnmet is returned when a phase's precondition does not hold.
var ErrPreconditionUnmet = errors.New("precondition not met")

// LookupError reports that a remote entity could not be correlated with the
// local configuration, e.g. a registered host whose name matches no node.
// It is a configuration mismatch, not a transient condition.
type LookupError struct {
	Entity string
	Key    string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no %s matches %q", e.Entity, e.Key)
}

// Is reports whether target is ErrLookup.
func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}

// PhaseError describes the failure that aborted a run.
type PhaseError struct {
	Phase  string
	Kind   Kind
	Target string
	// Message is the remote result message, verbatim, when there is one.
	Message string
	Err     error
}

func (e *PhaseError) Error() string {
	subject := string(e.Kind)
	if e.Target != "" {
		subject += " " + e.Target
	}
	if subject == "" {
		return fmt.Sprintf("phase %q failed: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("phase %q failed: %s: %v", e.Phase, subject, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// FailureClass groups failures by how an operator should react to them.
type FailureClass string

const (
	// ClassOperation: the remote system reported the operation as failed.
	ClassOperation FailureClass = "operation"
	// ClassTimeout: no terminal state within the poll timeout.
	ClassTimeout FailureClass = "timeout"
	// ClassLookup: remote state does not match the configuration.
	ClassLookup FailureClass = "lookup"
	// ClassSubmission: the remote system rejected or never received the request.
	ClassSubmission FailureClass = "submission"
	// ClassCanceled: the run was interrupted.
	ClassCanceled FailureClass = "canceled"
	// ClassPrecondition: a phase was not allowed to start.
	ClassPrecondition FailureClass = "precondition"
)

// Classify maps err to a FailureClass. It returns "" for nil.
func Classify(err error) FailureClass {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLookup):
		return ClassLookup
	case errors.Is(err, ErrPreconditionUnmet):
		return ClassPrecondition
	case poll.IsTimeout(err):
		return ClassTimeout
	case poll.IsFailed(err):
		return ClassOperation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCanceled
	case errors.Is(err, poll.ErrInvalidSpec):
		return ClassPrecondition
	default:
		return ClassSubmission
	}
}
