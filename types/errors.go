package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a framework error into the taxonomy shared by the
// scheduler, the retry policy, and the provider layer.
type ErrorKind string

// Error kinds. Each failure produced by the engine carries exactly one.
const (
	// ErrConfiguration indicates invalid or missing configuration,
	// including malformed API keys.
	ErrConfiguration ErrorKind = "configuration"

	// ErrValidation indicates an input failed schema validation or a
	// well-formedness check.
	ErrValidation ErrorKind = "validation"

	// ErrGraph indicates a structural violation: a cycle, a dangling
	// node reference, or an empty required field.
	ErrGraph ErrorKind = "graph"

	// ErrWorkflowExecution indicates a runtime failure during node
	// execution.
	ErrWorkflowExecution ErrorKind = "workflow_execution"

	// ErrLlmProvider indicates a provider-side failure. The error
	// carries the provider name and, when available, the HTTP status.
	ErrLlmProvider ErrorKind = "llm_provider"

	// ErrNetwork indicates a transport-level failure, including
	// timeouts.
	ErrNetwork ErrorKind = "network"

	// ErrAuth indicates rejected credentials.
	ErrAuth ErrorKind = "auth"

	// ErrRateLimit indicates provider or HTTP-level throttling.
	ErrRateLimit ErrorKind = "rate_limit"

	// ErrMemory indicates a memory persistence or index failure.
	ErrMemory ErrorKind = "memory"

	// ErrAgentNotFound indicates a node referenced an agent that is not
	// registered with the executor.
	ErrAgentNotFound ErrorKind = "agent_not_found"

	// ErrCancelled indicates cooperative cancellation was observed.
	ErrCancelled ErrorKind = "cancelled"
)

// Error is the tagged error type used throughout the framework.
//
// It implements the standard error interface and supports errors.Is /
// errors.As through Unwrap. Executors never panic; every failure path
// surfaces one of these.
type Error struct {
	// Kind classifies the error.
	Kind ErrorKind

	// Message is the human-readable description.
	Message string

	// Provider names the LLM or embedding provider for provider errors.
	Provider string

	// StatusCode carries the HTTP status for transport-backed errors
	// (0 when not applicable).
	StatusCode int

	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Provider != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s error (provider %s, status %d): %s", e.Kind, e.Provider, e.StatusCode, e.Message)
	case e.Provider != "":
		return fmt.Sprintf("%s error (provider %s): %s", e.Kind, e.Provider, e.Message)
	default:
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps a cause with a kind and message.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// ConfigurationError creates a configuration error.
func ConfigurationError(format string, args ...interface{}) *Error {
	return NewError(ErrConfiguration, format, args...)
}

// ValidationError creates a validation error.
func ValidationError(format string, args ...interface{}) *Error {
	return NewError(ErrValidation, format, args...)
}

// GraphError creates a graph structure error.
func GraphError(format string, args ...interface{}) *Error {
	return NewError(ErrGraph, format, args...)
}

// WorkflowExecutionError creates a runtime execution error.
func WorkflowExecutionError(format string, args ...interface{}) *Error {
	return NewError(ErrWorkflowExecution, format, args...)
}

// LlmProviderError creates a provider error carrying the provider name
// and HTTP status class (0 if unknown).
func LlmProviderError(provider string, status int, format string, args ...interface{}) *Error {
	e := NewError(ErrLlmProvider, format, args...)
	e.Provider = provider
	e.StatusCode = status
	return e
}

// NetworkError creates a transport-level error.
func NetworkError(format string, args ...interface{}) *Error {
	return NewError(ErrNetwork, format, args...)
}

// AuthError creates a credential-rejection error.
func AuthError(provider string, format string, args ...interface{}) *Error {
	e := NewError(ErrAuth, format, args...)
	e.Provider = provider
	return e
}

// RateLimitError creates a throttling error.
func RateLimitError(provider string, format string, args ...interface{}) *Error {
	e := NewError(ErrRateLimit, format, args...)
	e.Provider = provider
	e.StatusCode = 429
	return e
}

// MemoryError creates a memory subsystem error.
func MemoryError(format string, args ...interface{}) *Error {
	return NewError(ErrMemory, format, args...)
}

// AgentNotFoundError creates an unresolved-agent error.
func AgentNotFoundError(agentID AgentID) *Error {
	return NewError(ErrAgentNotFound, "agent not found: %s", agentID)
}

// CancelledError creates a cooperative-cancellation error.
func CancelledError(format string, args ...interface{}) *Error {
	return NewError(ErrCancelled, format, args...)
}

// KindOf extracts the ErrorKind from any error. Context cancellation and
// deadline errors map to Cancelled and Network respectively; everything
// unrecognized maps to WorkflowExecution.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrNetwork
	}
	return ErrWorkflowExecution
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
