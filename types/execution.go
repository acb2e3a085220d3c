package types

import (
	"time"
)

// NodeExecutionResult is the outcome record produced by a node
// executor. Failed executions carry the error message; successful ones
// carry the output value that downstream templates can reference.
type NodeExecutionResult struct {
	// Success reports whether the node completed without error.
	Success bool `json:"success"`
	// Output is the node's produced value (nil on failure).
	Output interface{} `json:"output"`
	// Error holds the failure message when Success is false.
	Error string `json:"error,omitempty"`
	// Metadata carries executor-specific annotations (token usage, tool
	// calls, HTTP status, ...).
	Metadata map[string]interface{} `json:"metadata"`
	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"duration_ms"`
	// StartedAt is when the first attempt began.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the final attempt finished.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// RetryCount is the number of retries performed (attempts - 1).
	RetryCount int `json:"retry_count"`
	// NodeID identifies the executed node.
	NodeID NodeID `json:"node_id"`
}

// SuccessResult creates a successful execution result.
func SuccessResult(nodeID NodeID, output interface{}) *NodeExecutionResult {
	return &NodeExecutionResult{
		Success:   true,
		Output:    output,
		Metadata:  make(map[string]interface{}, 4),
		StartedAt: time.Now().UTC(),
		NodeID:    nodeID,
	}
}

// FailureResult creates a failed execution result.
func FailureResult(nodeID NodeID, errMsg string) *NodeExecutionResult {
	return &NodeExecutionResult{
		Success:   false,
		Error:     errMsg,
		Metadata:  make(map[string]interface{}, 4),
		StartedAt: time.Now().UTC(),
		NodeID:    nodeID,
	}
}

// WithMetadata attaches a metadata entry and returns the result for
// chaining.
func (r *NodeExecutionResult) WithMetadata(key string, value interface{}) *NodeExecutionResult {
	r.Metadata[key] = value
	return r
}

// WithDuration sets the execution duration.
func (r *NodeExecutionResult) WithDuration(d time.Duration) *NodeExecutionResult {
	r.Duration = d
	return r
}

// WithRetryCount sets the number of retries performed.
func (r *NodeExecutionResult) WithRetryCount(n int) *NodeExecutionResult {
	r.RetryCount = n
	return r
}

// MarkCompleted stamps CompletedAt.
func (r *NodeExecutionResult) MarkCompleted() *NodeExecutionResult {
	now := time.Now().UTC()
	r.CompletedAt = &now
	return r
}

// WorkflowExecutionStats summarizes a completed run.
type WorkflowExecutionStats struct {
	// TotalNodes is the number of nodes dispatched.
	TotalNodes int `json:"total_nodes"`
	// SuccessfulNodes is the number that completed successfully.
	SuccessfulNodes int `json:"successful_nodes"`
	// FailedNodes is the number that ended failed after retries.
	FailedNodes int `json:"failed_nodes"`
	// SkippedNodes is the number pruned by condition or error routing.
	SkippedNodes int `json:"skipped_nodes"`
	// AvgExecutionTime is the mean per-node wall-clock time.
	AvgExecutionTime time.Duration `json:"avg_execution_time_ms"`
	// MaxConcurrentNodes is the largest batch dispatched.
	MaxConcurrentNodes int `json:"max_concurrent_nodes"`
	// TotalExecutionTime is the end-to-end run duration.
	TotalExecutionTime time.Duration `json:"total_execution_time_ms"`
	// SemaphoreAcquisitions counts permit sets taken during the run.
	SemaphoreAcquisitions uint64 `json:"semaphore_acquisitions"`
	// AvgSemaphoreWait is the mean time spent waiting for permits.
	AvgSemaphoreWait time.Duration `json:"avg_semaphore_wait_ms"`
}
