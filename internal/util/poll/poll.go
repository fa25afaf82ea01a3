package poll

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"
)

// Verdict is the predicate's classification of one observation.
type Verdict int

const (
	// Pending means the operation has not reached a terminal state yet.
	Pending Verdict = iota
	// Succeeded means the operation completed successfully.
	Succeeded
	// Failed means the operation reached a terminal failure.
	Failed
)

func (v Verdict) String() string {
	switch v {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is what a Predicate returns for one observation.
type Result struct {
	Verdict Verdict
	Reason  string
}

// StillPending returns a Pending result.
func StillPending() Result { return Result{Verdict: Pending} }

// Success returns a Succeeded result.
func Success() Result { return Result{Verdict: Succeeded} }

// Failure returns a Failed result carrying reason.
func Failure(reason string) Result { return Result{Verdict: Failed, Reason: reason} }

// Probe fetches the current state of the watched operation. It usually
// performs network I/O; errors are treated as transient.
type Probe[T any] func(ctx context.Context) (T, error)

// Predicate classifies a probe observation. It must not have side effects.
type Predicate[T any] func(T) Result

// Status is the terminal state of an episode.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed-out"
	StatusCanceled  Status = "canceled"
)

// Outcome summarizes a finished episode.
type Outcome struct {
	Status  Status
	Reason  string
	Elapsed time.Duration
	Ticks   int
}

// Recorder receives per-tick and per-episode observations.
type Recorder interface {
	ObserveTick(name string, verdict Verdict, probeErr error)
	ObserveEpisode(name string, status Status, elapsed time.Duration)
}

type options struct {
	name     string
	logger   logr.Logger
	clock    clock.Clock
	recorder Recorder
}

// Option customizes Await.
type Option func(*options)

// WithName labels the episode in logs, errors and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger. Tick records are written at V(1).
func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// deadlineBackoff waits one interval between probes, clamped to the episode
// deadline so that the last wait never overshoots it.
type deadlineBackoff struct {
	clock    clock.Clock
	interval time.Duration
	deadline time.Time
}

var _ wait.BackoffManager = (*deadlineBackoff)(nil)

func (b *deadlineBackoff) Backoff() clock.Timer {
	d := b.interval
	if remaining := b.deadline.Sub(b.clock.Now()); remaining < d {
		d = max(remaining, 0)
	}
	return b.clock.NewTimer(d)
}

// Await polls probe every spec.Interval until predicate reports success
// (held for spec.StabilityWindow when set), reports failure, spec.Timeout
// elapses, or ctx is done.
//
// A nil error means success. Failure returns a *FailedError immediately, with
// no dwell. Timeout returns a *TimeoutError. Cancellation returns ctx.Err().
// Any Pending observation, including a probe error, resets the stability
// timer. Each probe runs under a context bounded by the episode deadline; a
// probe cut off by it ends the episode as a timeout.
func Await[T any](ctx context.Context, spec Spec, probe Probe[T], predicate Predicate[T], opts ...Option) (Outcome, error) {
	o := &options{
		name:   "operation",
		logger: logr.Discard(),
		clock:  clock.RealClock{},
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := spec.Validate(); err != nil {
		return Outcome{}, err
	}

	log := o.logger.WithValues("poll", o.name)
	start := o.clock.Now()
	deadline := start.Add(spec.Timeout)
	var (
		stable      bool
		stableSince time.Time
		ticks       int
		outcome     Outcome
		outErr      error
		done        bool
	)

	loopCtx, stop := context.WithCancel(ctx)
	defer stop()

	finish := func(status Status, reason string, err error) {
		outcome = Outcome{Status: status, Reason: reason, Elapsed: o.clock.Since(start), Ticks: ticks}
		outErr = err
		done = true
		stop()
	}
	timedOut := func() {
		elapsed := o.clock.Since(start)
		finish(StatusTimedOut, "", &TimeoutError{Name: o.name, Timeout: spec.Timeout, Elapsed: elapsed})
	}

	tick := func(loop context.Context) {
		remaining := deadline.Sub(o.clock.Now())
		if remaining <= 0 {
			timedOut()
			return
		}

		probeCtx, cancel := context.WithTimeout(loop, remaining)
		value, probeErr := probe(probeCtx)
		probeExpired := probeCtx.Err() != nil
		cancel()
		if ctx.Err() != nil {
			finish(StatusCanceled, "", ctx.Err())
			return
		}
		ticks++
		if probeExpired {
			log.V(1).Info("Poll tick, probe cut off by deadline", "tick", ticks)
			timedOut()
			return
		}

		result := StillPending()
		if probeErr == nil {
			result = predicate(value)
		}

		now := o.clock.Now()
		elapsed := now.Sub(start)
		if o.recorder != nil {
			o.recorder.ObserveTick(o.name, result.Verdict, probeErr)
		}

		switch result.Verdict {
		case Failed:
			log.V(1).Info("Poll tick", "tick", ticks, "value", value, "verdict", result.Verdict, "elapsed", elapsed)
			finish(StatusFailed, result.Reason, &FailedError{Name: o.name, Reason: result.Reason})
			return
		case Succeeded:
			if !stable {
				stable = true
				stableSince = now
			}
			stableFor := now.Sub(stableSince)
			log.V(1).Info("Poll tick", "tick", ticks, "value", value, "verdict", result.Verdict,
				"elapsed", elapsed, "stableFor", stableFor)
			if stableFor >= spec.StabilityWindow {
				finish(StatusSucceeded, "", nil)
				return
			}
		default:
			stable = false
			if probeErr != nil {
				log.V(1).Info("Poll tick, probe failed, will retry", "tick", ticks, "elapsed", elapsed, "error", probeErr.Error())
			} else {
				log.V(1).Info("Poll tick", "tick", ticks, "value", value, "verdict", result.Verdict, "elapsed", elapsed)
			}
		}

		if elapsed >= spec.Timeout {
			timedOut()
		}
	}

	// Sliding: the next wait is measured from the end of the probe.
	wait.BackoffUntilWithContext(loopCtx, tick,
		&deadlineBackoff{clock: o.clock, interval: spec.Interval, deadline: deadline}, true)

	if !done {
		outcome = Outcome{Status: StatusCanceled, Elapsed: o.clock.Since(start), Ticks: ticks}
		outErr = ctx.Err()
	}
	if o.recorder != nil {
		o.recorder.ObserveEpisode(o.name, outcome.Status, outcome.Elapsed)
	}
	log.Info("Poll finished", "status", outcome.Status, "elapsed", outcome.Elapsed.Round(time.Millisecond), "ticks", outcome.Ticks)
	return outcome, outErr
}
