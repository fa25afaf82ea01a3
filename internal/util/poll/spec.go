package poll

import (
	"fmt"
	"time"
)

// Spec configures one polling episode.
type Spec struct {
	// Interval is the delay between successive probes.
	Interval time.Duration `json:"interval,omitempty" yaml:"interval,omitempty" toml:"interval,omitempty"`

	// Timeout bounds the whole episode.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`

	// StabilityWindow is how long success must be observed without
	// interruption before it is accepted. Zero accepts the first success,
	// but inherits the default in WithDefaults.
	StabilityWindow time.Duration `json:"stabilityWindow,omitempty" yaml:"stabilityWindow,omitempty" toml:"stabilityWindow,omitempty"`
}

// NoStabilityWindow asks WithDefaults for no window even when the default
// has one. Any negative window has the same effect, e.g. "-1s" in a config
// file.
const NoStabilityWindow time.Duration = -1

// Validate checks the invariants required by Await.
func (s Spec) Validate() error {
	if s.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidSpec, s.Interval)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidSpec, s.Timeout)
	}
	if s.StabilityWindow < 0 {
		return fmt.Errorf("%w: stability window must not be negative, got %v", ErrInvalidSpec, s.StabilityWindow)
	}
	if s.StabilityWindow >= s.Timeout {
		return fmt.Errorf("%w: stability window %v must be shorter than timeout %v",
			ErrInvalidSpec, s.StabilityWindow, s.Timeout)
	}
	return nil
}

// WithDefaults fills zero fields of s from def. A zero StabilityWindow
// inherits the default; a negative one becomes zero.
func (s Spec) WithDefaults(def Spec) Spec {
	if s.Interval == 0 {
		s.Interval = def.Interval
	}
	if s.Timeout == 0 {
		s.Timeout = def.Timeout
	}
	switch {
	case s.StabilityWindow < 0:
		s.StabilityWindow = 0
	case s.StabilityWindow == 0:
		s.StabilityWindow = def.StabilityWindow
	}
	return s
}
