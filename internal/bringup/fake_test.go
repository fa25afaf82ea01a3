package bringup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/imamik/bringup/internal/util/poll"
)

// fastPoll keeps runner tests quick.
var fastPoll = poll.Spec{Interval: time.Millisecond, Timeout: 2 * time.Second}

// fakeStatus replays scripted statuses per handle. The last status repeats.
type fakeStatus struct {
	mu      sync.Mutex
	scripts map[Handle][]RemoteStatus
	calls   map[Handle]int
	err     error
}

func newFakeStatus() *fakeStatus {
	return &fakeStatus{scripts: map[Handle][]RemoteStatus{}, calls: map[Handle]int{}}
}

func (f *fakeStatus) script(h Handle, statuses ...RemoteStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[h] = statuses
}

func (f *fakeStatus) OperationStatus(_ context.Context, h Handle) (RemoteStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return RemoteStatus{}, f.err
	}
	seq, ok := f.scripts[h]
	if !ok {
		return RemoteStatus{}, fmt.Errorf("unknown handle %q", h)
	}
	i := f.calls[h]
	f.calls[h]++
	if i >= len(seq) {
		i = len(seq) - 1
	}
	return seq[i], nil
}

var (
	active    = RemoteStatus{Active: true}
	succeeded = RemoteStatus{Success: true}
)

func failed(msg string) RemoteStatus { return RemoteStatus{Message: msg} }

// submitOp returns an operation that submits h and counts its submissions.
func submitOp(kind Kind, target string, h Handle, count *int) Operation {
	return Operation{
		Kind:   kind,
		Target: target,
		Submit: func(context.Context, *Run) (Submission, error) {
			if count != nil {
				*count++
			}
			return Submitted(h), nil
		},
	}
}

func newTestRunner(status StatusReader, opts ...RunnerOption) *Runner {
	n := 0
	base := []RunnerOption{
		WithDefaultPoll(fastPoll),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("run-%d", n)
		}),
	}
	return NewRunner(status, append(base, opts...)...)
}

var errBoom = errors.New("boom")
