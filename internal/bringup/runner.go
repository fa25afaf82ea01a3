package bringup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/imamik/bringup/internal/util/async"
	"github.com/imamik/bringup/internal/util/poll"
)

// DefaultPollSpec is used for operations that do not set their own.
var DefaultPollSpec = poll.Spec{Interval: 3 * time.Second, Timeout: 180 * time.Second}

// Runner executes phases against a management plane.
type Runner struct {
	status   StatusReader
	defaults poll.Spec
	logger   logr.Logger
	observer Observer
	clock    clock.Clock
	metrics  *Metrics
	newID    func() string
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithDefaultPoll sets the poll spec inherited by operations.
func WithDefaultPoll(spec poll.Spec) RunnerOption {
	return func(r *Runner) { r.defaults = spec }
}

// WithLogger sets the logger passed down to every poll episode.
func WithLogger(logger logr.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithObserver sets the receiver of lifecycle events.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) { r.observer = o }
}

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

// WithMetrics records poll and phase metrics.
func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithIDGenerator replaces the run ID generator.
func WithIDGenerator(f func() string) RunnerOption {
	return func(r *Runner) { r.newID = f }
}

// NewRunner returns a Runner that polls handles through status.
func NewRunner(status StatusReader, opts ...RunnerOption) *Runner {
	r := &Runner{
		status:   status,
		defaults: DefaultPollSpec,
		logger:   logr.Discard(),
		observer: NopObserver{},
		clock:    clock.RealClock{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes phases in order and stops at the first failure.
//
// The returned Run is always non-nil and complete: phases that were not
// executed are recorded as ABORTED. The error is the *PhaseError that
// aborted the run.
func (r *Runner) Run(ctx context.Context, phases []Phase) (*Run, error) {
	run := NewRun(r.newID())
	run.Status = RunRunning
	run.StartedAt = r.clock.Now()
	log := r.logger.WithValues("run", run.ID)
	r.observer.Event(Event{Type: EventRunStarted, Message: fmt.Sprintf("%d phases", len(phases))})

	for i, phase := range phases {
		if run.Cause != nil {
			run.Phases = append(run.Phases, PhaseResult{Name: phase.Name, Status: PhaseAborted})
			r.metrics.observePhase(phase.Name, PhaseAborted, 0)
			r.observer.Event(Event{Type: EventPhaseAborted, Phase: phase.Name, Message: "not started"})
			continue
		}

		label := fmt.Sprintf("%s (%d/%d)", phase.Name, i+1, len(phases))
		result, err := r.runPhase(ctx, log.WithValues("phase", phase.Name), label, phase, run)
		run.Phases = append(run.Phases, result)
		r.metrics.observePhase(phase.Name, result.Status, result.Duration)
		if err != nil {
			var pe *PhaseError
			if !errors.As(err, &pe) {
				pe = &PhaseError{Phase: phase.Name, Err: err}
			}
			run.Cause = pe
			run.Error = pe.Error()
			run.Status = RunAborted
		}
	}

	run.FinishedAt = r.clock.Now()
	elapsed := run.FinishedAt.Sub(run.StartedAt)
	if run.Cause != nil {
		r.observer.Event(Event{Type: EventRunAborted, Phase: run.Cause.Phase, Message: run.Cause.Error()})
		log.Info("Bring-up aborted", "phase", run.Cause.Phase, "class", Classify(run.Cause), "elapsed", elapsed.Round(time.Millisecond))
		return run, run.Cause
	}
	run.Status = RunSucceeded
	r.observer.Event(Event{Type: EventRunCompleted, Message: fmt.Sprintf("completed in %v", elapsed.Round(time.Millisecond))})
	log.Info("Bring-up completed", "elapsed", elapsed.Round(time.Millisecond))
	return run, nil
}

func (r *Runner) runPhase(ctx context.Context, log logr.Logger, label string, phase Phase, run *Run) (PhaseResult, error) {
	result := PhaseResult{Name: phase.Name, StartedAt: r.clock.Now()}

	check := phase.Precondition
	if check == nil {
		check = AllPriorSucceeded
	}
	if err := check(run); err != nil {
		result.Status = PhaseFailed
		result.Error = err.Error()
		r.observer.Event(Event{Type: EventPhaseFailed, Phase: phase.Name, Message: err.Error()})
		return result, &PhaseError{Phase: phase.Name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		result.Status = PhaseFailed
		result.Error = err.Error()
		return result, &PhaseError{Phase: phase.Name, Err: err}
	}

	r.observer.Event(Event{Type: EventPhaseStarted, Phase: label, Message: "starting"})

	var err error
	if phase.Parallel && len(phase.Operations) > 1 {
		result.Operations, err = r.runParallel(ctx, log, phase, run)
	} else {
		result.Operations, err = r.runSequential(ctx, log, phase, run)
	}
	result.Duration = r.clock.Since(result.StartedAt)

	if err != nil {
		result.Status = PhaseFailed
		result.Error = err.Error()
		r.observer.Event(Event{Type: EventPhaseFailed, Phase: label, Message: err.Error()})
		return result, err
	}
	result.Status = PhaseSucceeded
	r.observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   label,
		Message: fmt.Sprintf("completed in %v", result.Duration.Round(time.Millisecond)),
	})
	return result, nil
}

func (r *Runner) runSequential(ctx context.Context, log logr.Logger, phase Phase, run *Run) ([]OperationResult, error) {
	results := make([]OperationResult, 0, len(phase.Operations))
	for _, op := range phase.Operations {
		res, err := r.execute(ctx, log, phase.Name, op, run)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (r *Runner) runParallel(ctx context.Context, log logr.Logger, phase Phase, run *Run) ([]OperationResult, error) {
	results := make([]OperationResult, len(phase.Operations))
	errs := make([]error, len(phase.Operations))
	tasks := make([]async.Task, len(phase.Operations))
	for i, op := range phase.Operations {
		tasks[i] = async.Task{
			Name: op.Name(),
			Func: func(ctx context.Context) error {
				results[i], errs[i] = r.execute(ctx, log, phase.Name, op, run)
				return errs[i]
			},
		}
	}
	if err := async.RunParallel(ctx, tasks); err != nil {
		// Report the first failure in declaration order.
		for _, e := range errs {
			if e != nil {
				return results, e
			}
		}
		return results, err
	}
	return results, nil
}

func (r *Runner) execute(ctx context.Context, log logr.Logger, phaseName string, op Operation, run *Run) (OperationResult, error) {
	res := OperationResult{Kind: op.Kind, Target: op.Target, Status: OperationPending}
	start := r.clock.Now()
	fail := func(status OperationStatus, message string, err error) (OperationResult, error) {
		res.Status = status
		res.Message = message
		res.Elapsed = r.clock.Since(start)
		r.metrics.observeOperation(op.Kind, status)
		r.observer.Event(Event{
			Type:     EventOperationFailed,
			Phase:    phaseName,
			Resource: op.Name(),
			Message:  err.Error(),
		})
		return res, &PhaseError{Phase: phaseName, Kind: op.Kind, Target: op.Target, Message: message, Err: err}
	}
	succeed := func(status OperationStatus) (OperationResult, error) {
		res.Status = status
		res.Elapsed = r.clock.Since(start)
		r.metrics.observeOperation(op.Kind, status)
		evt := EventOperationSucceeded
		switch {
		case status == OperationSkipped:
			evt = EventOperationSkipped
		case res.Overridden != "":
			evt = EventOperationOverridden
		}
		r.observer.Event(Event{Type: evt, Phase: phaseName, Resource: op.Name(), Message: res.Note})
		return res, nil
	}

	spec := op.Poll.WithDefaults(r.defaults)
	popts := []poll.Option{
		poll.WithName(op.Name()),
		poll.WithLogger(log),
		poll.WithClock(r.clock),
	}
	if r.metrics != nil {
		popts = append(popts, poll.WithRecorder(r.metrics))
	}

	switch {
	case op.Watch != nil:
		res.Status = OperationActive
		out, err := poll.Await(ctx, spec, op.Watch, func(v poll.Result) poll.Result { return v }, popts...)
		res.Ticks = out.Ticks
		if err != nil {
			return fail(statusFor(err), out.Reason, err)
		}
		return succeed(OperationSucceeded)

	case op.Submit != nil:
		sub, err := op.Submit(ctx, run)
		if err != nil {
			if Classify(err) == ClassLookup {
				return fail(OperationFailed, "", err)
			}
			return fail(OperationFailed, "", fmt.Errorf("failed to submit %s: %w", op.Kind, err))
		}
		res.Note = sub.Note
		if sub.Skipped {
			r.commit(run, sub.Outputs)
			return succeed(OperationSkipped)
		}
		res.Handle = sub.Handle
		r.observer.Event(Event{Type: EventOperationSubmitted, Phase: phaseName, Resource: op.Name(), Message: string(sub.Handle)})
		if sub.Handle == NoHandle {
			r.commit(run, sub.Outputs)
			return succeed(OperationSucceeded)
		}

		res.Status = OperationActive
		var last RemoteStatus
		probe := func(ctx context.Context) (RemoteStatus, error) {
			s, err := r.status.OperationStatus(ctx, sub.Handle)
			if err == nil {
				last = s
			}
			return s, err
		}
		out, err := poll.Await(ctx, spec, probe, StatusPredicate(op.Override), popts...)
		res.Ticks = out.Ticks
		if err != nil {
			return fail(statusFor(err), out.Reason, err)
		}
		if !last.Success && op.Override != nil {
			res.Overridden = op.Override.Name
			res.Message = last.Message
			log.Info("Accepted failure through override", "operation", op.Name(), "override", op.Override.Name, "message", last.Message)
		}
		r.commit(run, sub.Outputs)
		return succeed(OperationSucceeded)

	default:
		return fail(OperationFailed, "", fmt.Errorf("%w: operation %s has neither Submit nor Watch", ErrPreconditionUnmet, op.Name()))
	}
}

func (r *Runner) commit(run *Run, outputs map[string][]string) {
	for key, values := range outputs {
		run.Record(key, values...)
	}
}

func statusFor(err error) OperationStatus {
	switch Classify(err) {
	case ClassTimeout:
		return OperationTimedOut
	case ClassCanceled:
		return OperationCanceled
	default:
		return OperationFailed
	}
}
