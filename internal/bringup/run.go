package bringup

import (
	"sort"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
)

// OutputAddedHosts is the run output listing host IDs added to the cluster.
const OutputAddedHosts = "added-hosts"

// Run is the record of one bring-up attempt.
type Run struct {
	ID         string        `json:"id" yaml:"id"`
	Status     RunStatus     `json:"status" yaml:"status"`
	StartedAt  time.Time     `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
	Phases     []PhaseResult `json:"phases" yaml:"phases"`
	// Error is the text of Cause, kept for encoded reports.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Cause is the failure that aborted the run.
	Cause *PhaseError `json:"-" yaml:"-"`

	mu      sync.Mutex
	outputs map[string]sets.Set[string]
}

// PhaseResult records how one phase ended.
type PhaseResult struct {
	Name       string            `json:"name" yaml:"name"`
	Status     PhaseStatus       `json:"status" yaml:"status"`
	StartedAt  time.Time         `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	Duration   time.Duration     `json:"duration" yaml:"duration"`
	Operations []OperationResult `json:"operations,omitempty" yaml:"operations,omitempty"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// OperationResult records how one operation ended.
type OperationResult struct {
	Kind       Kind            `json:"kind" yaml:"kind"`
	Target     string          `json:"target,omitempty" yaml:"target,omitempty"`
	Handle     Handle          `json:"handle,omitempty" yaml:"handle,omitempty"`
	Status     OperationStatus `json:"status" yaml:"status"`
	Message    string          `json:"message,omitempty" yaml:"message,omitempty"`
	Note       string          `json:"note,omitempty" yaml:"note,omitempty"`
	Overridden string          `json:"overridden,omitempty" yaml:"overridden,omitempty"`
	Elapsed    time.Duration   `json:"elapsed" yaml:"elapsed"`
	Ticks      int             `json:"ticks,omitempty" yaml:"ticks,omitempty"`
}

// NewRun returns an empty run in NOT_STARTED state.
func NewRun(id string) *Run {
	return &Run{
		ID:      id,
		Status:  RunNotStarted,
		outputs: make(map[string]sets.Set[string]),
	}
}

// Phase returns the result of the named phase, if it has been recorded.
func (r *Run) Phase(name string) (PhaseResult, bool) {
	for _, p := range r.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseResult{}, false
}

// Succeeded reports whether the run completed every phase.
func (r *Run) Succeeded() bool {
	return r.Status == RunSucceeded
}

// Output returns the sorted values recorded under key.
func (r *Run) Output(key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.outputs[key]
	if !ok {
		return nil
	}
	return sets.List(s)
}

// HasOutput reports whether anything, even an empty set, was recorded under key.
func (r *Run) HasOutput(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.outputs[key]
	return ok
}

// Outputs returns a copy of all recorded outputs.
func (r *Run) Outputs() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string, len(r.outputs))
	for k, v := range r.outputs {
		out[k] = sets.List(v)
	}
	return out
}

// OutputKeys returns the recorded output names in sorted order.
func (r *Run) OutputKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.outputs))
	for k := range r.outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Record adds values to the output named key. Safe for concurrent use.
func (r *Run) Record(key string, values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outputs == nil {
		r.outputs = make(map[string]sets.Set[string])
	}
	s, ok := r.outputs[key]
	if !ok {
		s = sets.New[string]()
		r.outputs[key] = s
	}
	s.Insert(values...)
}
