package poll

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is matched by every *TimeoutError.
	ErrTimeout = errors.New("timed out")

	// ErrInvalidSpec is returned when a Spec cannot drive an episode.
	ErrInvalidSpec = errors.New("invalid poll spec")
)

// FailedError reports that the predicate classified an observation as failed.
type FailedError struct {
	Name   string
	Reason string
}

func (e *FailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s failed", e.Name)
	}
	return fmt.Sprintf("%s failed: %s", e.Name, e.Reason)
}

// TimeoutError reports that no confirmed success was observed before the deadline.
type TimeoutError struct {
	Name    string
	Timeout time.Duration
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %v waiting for %s", e.Elapsed.Round(time.Millisecond), e.Name)
}

// Is makes errors.Is(err, ErrTimeout) hold for any *TimeoutError.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsTimeout reports whether err is, or wraps, a poll timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsFailed reports whether err is, or wraps, a predicate failure.
func IsFailed(err error) bool {
	var failed *FailedError
	return errors.As(err, &failed)
}
