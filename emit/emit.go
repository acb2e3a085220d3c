// Package emit provides execution event emission for workflow runs:
// the scheduler reports node starts, completions, retries, and state
// transitions through an Emitter.
package emit

import (
	"sync"
	"time"
)

// Event is one observability record from a workflow run.
type Event struct {
	// WorkflowID identifies the run.
	WorkflowID string `json:"workflow_id"`
	// NodeID identifies the node, when the event is node-scoped.
	NodeID string `json:"node_id,omitempty"`
	// NodeName is the node's human name, when node-scoped.
	NodeName string `json:"node_name,omitempty"`
	// Msg names the event ("node_start", "node_end", "node_retry",
	// "workflow_completed", ...).
	Msg string `json:"msg"`
	// Meta carries event-specific details.
	Meta map[string]interface{} `json:"meta,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Emitter receives execution events. Implementations must be safe for
// concurrent use; the scheduler emits from multiple goroutines.
type Emitter interface {
	Emit(event Event)
}

// NullEmitter discards every event. Useful as the default when no
// observability sink is configured.
type NullEmitter struct{}

// NewNullEmitter creates a discarding emitter.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

// Emit implements Emitter by doing nothing.
func (*NullEmitter) Emit(Event) {}

// Recorder retains every emitted event in memory. Intended for tests
// asserting on execution ordering.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates a recording emitter.
func NewRecorder() *Recorder { return &Recorder{} }

// Emit implements Emitter.
func (r *Recorder) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]Event, len(r.events))
	copy(events, r.events)
	return events
}

// EventsNamed returns recorded events with the given Msg.
func (r *Recorder) EventsNamed(msg string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []Event
	for _, e := range r.events {
		if e.Msg == msg {
			matched = append(matched, e)
		}
	}
	return matched
}
