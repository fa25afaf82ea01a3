package bringup

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// Observer receives structured lifecycle events from a Runner.
type Observer interface {
	Event(event Event)
}

// Event is a structured bring-up event.
type Event struct {
	Type      EventType
	Phase     string // Phase name, possibly with its position ("start-services (7/8)")
	Resource  string // Operation name if applicable
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType is the type of a bring-up event.
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunAborted   EventType = "run.aborted"

	EventPhaseStarted   EventType = "phase.started"
	EventPhaseCompleted EventType = "phase.completed"
	EventPhaseFailed    EventType = "phase.failed"
	EventPhaseAborted   EventType = "phase.aborted"

	EventOperationSubmitted  EventType = "operation.submitted"
	EventOperationSucceeded  EventType = "operation.succeeded"
	EventOperationSkipped    EventType = "operation.skipped"
	EventOperationOverridden EventType = "operation.overridden"
	EventOperationFailed     EventType = "operation.failed"
)

// NopObserver drops every event.
type NopObserver struct{}

// Event implements Observer.
func (NopObserver) Event(Event) {}

// LogObserver writes events to a logr.Logger.
type LogObserver struct {
	logger logr.Logger
	now    func() time.Time
}

// NewLogObserver returns an observer that logs through logger.
func NewLogObserver(logger logr.Logger) *LogObserver {
	return &LogObserver{logger: logger, now: time.Now}
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = o.now()
	}
	kv := []any{"event", string(event.Type)}
	if event.Phase != "" {
		kv = append(kv, "phase", event.Phase)
	}
	if event.Resource != "" {
		kv = append(kv, "operation", event.Resource)
	}
	for _, k := range sortedKeys(event.Fields) {
		kv = append(kv, k, event.Fields[k])
	}
	if event.Type == EventPhaseFailed || event.Type == EventOperationFailed || event.Type == EventRunAborted {
		o.logger.Error(nil, event.Message, kv...)
		return
	}
	o.logger.Info(event.Message, kv...)
}

// FuncObserver adapts a function to Observer.
type FuncObserver func(Event)

// Event implements Observer.
func (f FuncObserver) Event(e Event) { f(e) }

// MultiObserver fans an event out to several observers.
type MultiObserver []Observer

// Event implements Observer.
func (m MultiObserver) Event(e Event) {
	for _, o := range m {
		o.Event(e)
	}
}

// String formats the event on one line, e.g.
// "phase.completed [register-hosts (3/8)] completed in 2s".
func (e Event) String() string {
	var parts []string
	parts = append(parts, string(e.Type))
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Phase))
	}
	if e.Resource != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Resource))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(e.Fields) > 0 {
		var fieldParts []string
		for _, k := range sortedKeys(e.Fields) {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, e.Fields[k]))
		}
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(fieldParts, ", ")))
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
