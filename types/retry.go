package types

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryableErrorType buckets an error for retry-policy decisions.
type RetryableErrorType string

// Retry classification buckets.
const (
	// RetryNetworkError covers connectivity failures.
	RetryNetworkError RetryableErrorType = "network_error"
	// RetryTimeoutError covers request and node timeouts.
	RetryTimeoutError RetryableErrorType = "timeout_error"
	// RetryRateLimitError covers throttling by external services.
	RetryRateLimitError RetryableErrorType = "rate_limit_error"
	// RetryTemporaryUnavailable covers transient unavailability,
	// including circuit-breaker denials and 503 responses.
	RetryTemporaryUnavailable RetryableErrorType = "temporary_unavailable"
	// RetryInternalServerError covers 5xx-class provider failures.
	RetryInternalServerError RetryableErrorType = "internal_server_error"
	// RetryAuthenticationError covers rejected credentials. Not
	// retryable by default.
	RetryAuthenticationError RetryableErrorType = "authentication_error"
	// RetryResourceConflict covers conflicts that may resolve (409).
	RetryResourceConflict RetryableErrorType = "resource_conflict"
	// RetryOther covers everything else. Use with caution.
	RetryOther RetryableErrorType = "other"
)

// DefaultRetryableErrors is the default set of error types that trigger
// a retry.
func DefaultRetryableErrors() []RetryableErrorType {
	return []RetryableErrorType{
		RetryNetworkError,
		RetryTimeoutError,
		RetryRateLimitError,
		RetryTemporaryUnavailable,
		RetryInternalServerError,
	}
}

// RetryConfig controls per-node retry behavior.
//
// The delay before retry attempt n is computed with exponential backoff
// and uniform jitter:
//
//	base  = min(InitialDelay * BackoffMultiplier^n, MaxDelay)
//	delay = clamp(base + uniform(-base*JitterFactor, +base*JitterFactor), 0, MaxDelay)
//
// Tests requiring deterministic delays should set JitterFactor to 0.
type RetryConfig struct {
	// MaxAttempts is the total number of execution attempts, including
	// the initial one. A value of 1 means no retries.
	MaxAttempts int `json:"max_attempts"`

	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration `json:"initial_delay_ms"`

	// BackoffMultiplier grows the delay per attempt (2.0 doubles it).
	BackoffMultiplier float64 `json:"backoff_multiplier"`

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration `json:"max_delay_ms"`

	// JitterFactor in [0, 1] sets the fraction of the base delay used
	// as the jitter range.
	JitterFactor float64 `json:"jitter_factor"`

	// RetryableErrors lists the error types that trigger a retry.
	RetryableErrors []RetryableErrorType `json:"retryable_errors"`
}

// DefaultRetryConfig returns the standard retry policy: three attempts,
// 1s initial delay doubling up to 30s, 10% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          30 * time.Second,
		JitterFactor:      0.1,
		RetryableErrors:   DefaultRetryableErrors(),
	}
}

// NewRetryConfig creates a retry config with the given attempt budget
// and default backoff parameters.
func NewRetryConfig(maxAttempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = maxAttempts
	return cfg
}

// WithExponentialBackoff sets the backoff parameters.
func (c RetryConfig) WithExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) RetryConfig {
	c.InitialDelay = initial
	c.BackoffMultiplier = multiplier
	c.MaxDelay = max
	return c
}

// WithJitter sets the jitter factor, clamped to [0, 1].
func (c RetryConfig) WithJitter(factor float64) RetryConfig {
	c.JitterFactor = math.Max(0, math.Min(1, factor))
	return c
}

// WithRetryableErrors replaces the retryable error set.
func (c RetryConfig) WithRetryableErrors(kinds ...RetryableErrorType) RetryConfig {
	c.RetryableErrors = kinds
	return c
}

// CalculateDelay computes the backoff delay before retry attempt
// `attempt` (0-based). The result never exceeds MaxDelay and is never
// negative.
func (c RetryConfig) CalculateDelay(attempt int) time.Duration {
	if c.InitialDelay <= 0 {
		return 0
	}

	base := float64(c.InitialDelay) * math.Pow(c.BackoffMultiplier, float64(attempt))
	if max := float64(c.MaxDelay); c.MaxDelay > 0 && base > max {
		base = max
	}

	var jitter float64
	if c.JitterFactor > 0 {
		span := base * c.JitterFactor
		// Process-wide PRNG; determinism is opted into with JitterFactor=0.
		jitter = (rand.Float64()*2 - 1) * span // #nosec G404 -- retry timing, not security
	}

	delay := base + jitter
	if delay < 0 {
		delay = 0
	}
	if max := float64(c.MaxDelay); c.MaxDelay > 0 && delay > max {
		delay = max
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether the given failure on 0-based attempt
// `attempt` warrants another try. Cancellation is never retried.
func (c RetryConfig) ShouldRetry(err error, attempt int) bool {
	if attempt+1 >= c.MaxAttempts {
		return false
	}
	if IsKind(err, ErrCancelled) {
		return false
	}

	kind := ClassifyError(err)
	for _, retryable := range c.RetryableErrors {
		if kind == retryable {
			return true
		}
	}
	return false
}

// ClassifyError maps an error to its retry bucket.
//
// Provider errors are classified by HTTP status where available:
// 408 -> timeout, 429 -> rate limit, 503 -> temporarily unavailable,
// other 5xx -> internal server error, 401/403 -> auth, 409 -> conflict. Circuit-breaker denials classify as
// temporarily unavailable.
func ClassifyError(err error) RetryableErrorType {
	if errors.Is(err, ErrCircuitBreakerOpen) {
		return RetryTemporaryUnavailable
	}

	var e *Error
	if errors.As(err, &e) {
		if t, ok := classifyStatus(e.StatusCode); ok {
			return t
		}
		switch e.Kind {
		case ErrNetwork:
			return RetryNetworkError
		case ErrRateLimit:
			return RetryRateLimitError
		case ErrAuth:
			return RetryAuthenticationError
		case ErrLlmProvider:
			// Provider failure without a status: assume transient.
			return RetryTemporaryUnavailable
		case ErrValidation:
			// Validation failures attributed to a provider are schema
			// misses on model output and worth another attempt;
			// structural validation is not.
			if e.Provider != "" {
				return RetryTemporaryUnavailable
			}
		}
		return RetryOther
	}

	switch KindOf(err) {
	case ErrNetwork:
		return RetryTimeoutError
	default:
		return RetryOther
	}
}

func classifyStatus(status int) (RetryableErrorType, bool) {
	switch {
	case status == 0:
		return RetryOther, false
	case status == 408:
		return RetryTimeoutError, true
	case status == 429:
		return RetryRateLimitError, true
	case status == 503:
		return RetryTemporaryUnavailable, true
	case status >= 500:
		return RetryInternalServerError, true
	case status == 401 || status == 403:
		return RetryAuthenticationError, true
	case status == 409:
		return RetryResourceConflict, true
	default:
		return RetryOther, false
	}
}
