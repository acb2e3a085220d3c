package types

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// WorkflowStatus is the discriminator for WorkflowState.
type WorkflowStatus string

// Workflow lifecycle states.
const (
	// StatusPending - not yet dispatched.
	StatusPending WorkflowStatus = "pending"
	// StatusRunning - at least one node has been dispatched.
	StatusRunning WorkflowStatus = "running"
	// StatusPaused - execution suspended with a reason.
	StatusPaused WorkflowStatus = "paused"
	// StatusCompleted - all batches finished successfully. Terminal.
	StatusCompleted WorkflowStatus = "completed"
	// StatusFailed - a node exhausted its retries with no compensating
	// path. Terminal.
	StatusFailed WorkflowStatus = "failed"
	// StatusCancelled - cooperative cancellation observed. Terminal.
	StatusCancelled WorkflowStatus = "cancelled"
)

// WorkflowState is a tagged variant over the workflow lifecycle.
// Running and Paused carry the current node; Paused carries a reason;
// Failed carries the error message.
type WorkflowState struct {
	Status      WorkflowStatus `json:"status"`
	CurrentNode *NodeID        `json:"current_node,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// StatePending returns the initial state.
func StatePending() WorkflowState { return WorkflowState{Status: StatusPending} }

// StateRunning returns a running state positioned at the given node.
func StateRunning(current NodeID) WorkflowState {
	return WorkflowState{Status: StatusRunning, CurrentNode: &current}
}

// StatePaused returns a paused state with a reason.
func StatePaused(current NodeID, reason string) WorkflowState {
	return WorkflowState{Status: StatusPaused, CurrentNode: &current, Reason: reason}
}

// StateCompleted returns the successful terminal state.
func StateCompleted() WorkflowState { return WorkflowState{Status: StatusCompleted} }

// StateFailed returns the failed terminal state.
func StateFailed(errMsg string) WorkflowState {
	return WorkflowState{Status: StatusFailed, Error: errMsg}
}

// StateCancelled returns the cancelled terminal state.
func StateCancelled() WorkflowState { return WorkflowState{Status: StatusCancelled} }

// IsTerminal reports whether the state is Completed, Failed, or
// Cancelled.
func (s WorkflowState) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed || s.Status == StatusCancelled
}

// IsRunning reports whether the workflow is currently executing.
func (s WorkflowState) IsRunning() bool { return s.Status == StatusRunning }

// WorkflowContext carries the mutable execution state of one workflow
// run: shared variables, per-node outputs, and lifecycle state.
//
// The scheduler is the single writer; executors receive the context
// only to read variables and record their own output. All accessors are
// safe for concurrent readers.
type WorkflowContext struct {
	// WorkflowID identifies the workflow being executed.
	WorkflowID WorkflowID `json:"workflow_id"`
	// State is the current lifecycle state.
	State WorkflowState `json:"state"`
	// Variables are shared values readable by every node.
	Variables map[string]interface{} `json:"variables"`
	// NodeOutputs holds each completed node's output, keyed both by the
	// node's ID string and by its human name.
	NodeOutputs map[string]interface{} `json:"node_outputs"`
	// Metadata holds run-scoped annotations such as token usage.
	Metadata map[string]interface{} `json:"metadata"`
	// StartedAt is when execution began.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is set when the run reaches a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Stats summarizes the run after completion.
	Stats *WorkflowExecutionStats `json:"stats,omitempty"`

	mu sync.RWMutex
}

// NewWorkflowContext creates a pending context for the given workflow.
func NewWorkflowContext(workflowID WorkflowID) *WorkflowContext {
	return &WorkflowContext{
		WorkflowID:  workflowID,
		State:       StatePending(),
		Variables:   make(map[string]interface{}, 8),
		NodeOutputs: make(map[string]interface{}, 8),
		Metadata:    make(map[string]interface{}, 4),
		StartedAt:   time.Now().UTC(),
	}
}

// SetVariable stores a shared variable.
func (c *WorkflowContext) SetVariable(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Variables[key] = value
}

// GetVariable reads a shared variable.
func (c *WorkflowContext) GetVariable(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.Variables[key]
	return v, ok
}

// VariablesSnapshot returns a shallow copy of the variables map.
func (c *WorkflowContext) VariablesSnapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]interface{}, len(c.Variables))
	for k, v := range c.Variables {
		snapshot[k] = v
	}
	return snapshot
}

// SetMetadata stores a run-scoped metadata value. Later writers win.
func (c *WorkflowContext) SetMetadata(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Metadata[key] = value
}

// GetMetadata reads a run-scoped metadata value.
func (c *WorkflowContext) GetMetadata(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.Metadata[key]
	return v, ok
}

// SetState transitions the lifecycle state.
func (c *WorkflowContext) SetState(state WorkflowState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.State = state
}

// CurrentState reads the lifecycle state.
func (c *WorkflowContext) CurrentState() WorkflowState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.State
}

// Complete marks the run completed and stamps CompletedAt.
func (c *WorkflowContext) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.State = StateCompleted()
	now := time.Now().UTC()
	c.CompletedAt = &now
}

// Fail marks the run failed with the given error message.
func (c *WorkflowContext) Fail(errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.State = StateFailed(errMsg)
	now := time.Now().UTC()
	c.CompletedAt = &now
}

// Cancel marks the run cancelled.
func (c *WorkflowContext) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.State = StateCancelled()
	now := time.Now().UTC()
	c.CompletedAt = &now
}

// SetStats attaches execution statistics.
func (c *WorkflowContext) SetStats(stats WorkflowExecutionStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Stats = &stats
}

// ExecutionDuration returns how long the run has been (or was) active.
func (c *WorkflowContext) ExecutionDuration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.CompletedAt != nil {
		return c.CompletedAt.Sub(c.StartedAt)
	}
	return time.Since(c.StartedAt)
}

// SetNodeOutput records a node's output under its ID string for
// downstream template references.
func (c *WorkflowContext) SetNodeOutput(nodeID NodeID, output interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.NodeOutputs[nodeID.String()] = output
}

// SetNodeOutputByName records a node's output under its human name.
func (c *WorkflowContext) SetNodeOutputByName(name string, output interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.NodeOutputs[name] = output
}

// GetNodeOutput looks up a node output by ID string or human name.
func (c *WorkflowContext) GetNodeOutput(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.NodeOutputs[key]
	return v, ok
}

// NodeOutputsSnapshot returns a shallow copy of the node-outputs map.
func (c *WorkflowContext) NodeOutputsSnapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]interface{}, len(c.NodeOutputs))
	for k, v := range c.NodeOutputs {
		snapshot[k] = v
	}
	return snapshot
}

// GetNestedOutput resolves a dot-path reference whose first segment is
// a node ID or human name and whose remaining segments index into the
// output's JSON structure: "analyzer.result.score".
func (c *WorkflowContext) GetNestedOutput(reference string) (interface{}, bool) {
	key, path := splitReference(reference)

	// Fall back to the whole reference as a key, so a node name
	// containing dots resolves when it is referenced without a path.
	// A dotted name followed by a path does not resolve.
	c.mu.RLock()
	output, ok := c.NodeOutputs[key]
	if !ok {
		output, ok = c.NodeOutputs[reference]
		if ok {
			path = ""
		}
	}
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if path == "" {
		return output, true
	}

	encoded, err := json.Marshal(output)
	if err != nil {
		return nil, false
	}
	result := gjson.GetBytes(encoded, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func splitReference(reference string) (key, path string) {
	for i := 0; i < len(reference); i++ {
		if reference[i] == '.' {
			return reference[:i], reference[i+1:]
		}
	}
	return reference, ""
}
