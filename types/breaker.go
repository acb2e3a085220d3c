package types

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitBreakerOpen is returned when a breaker denies a request.
// The retry classifier treats it as temporarily unavailable, so denied
// dispatches back off and retry rather than failing hard.
var ErrCircuitBreakerOpen = NewError(ErrWorkflowExecution, "circuit breaker is open")

// CircuitState is the observable state of a circuit breaker.
type CircuitState string

// Circuit breaker states.
const (
	// CircuitClosed lets requests flow normally.
	CircuitClosed CircuitState = "closed"
	// CircuitOpen rejects requests until the recovery timeout elapses.
	CircuitOpen CircuitState = "open"
	// CircuitHalfOpen probes the dependency with a limited number of
	// requests.
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreakerConfig configures the per-dependency failure/recovery
// state machine.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures within the
	// failure window that opens the circuit.
	FailureThreshold uint32 `json:"failure_threshold"`

	// RecoveryTimeout is how long an open circuit rejects requests
	// before probing in half-open state.
	RecoveryTimeout time.Duration `json:"recovery_timeout_ms"`

	// SuccessThreshold is the number of consecutive successful probes
	// that close a half-open circuit.
	SuccessThreshold uint32 `json:"success_threshold"`

	// FailureWindow bounds the period over which failures accumulate
	// while the circuit is closed.
	FailureWindow time.Duration `json:"failure_window_ms"`
}

// DefaultCircuitBreakerConfig returns the standard breaker settings:
// five failures within a minute open the circuit, recovery probes start
// after 30 seconds, and three successes close it again.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 3,
		FailureWindow:    time.Minute,
	}
}

// CircuitBreaker guards one external dependency (for example an
// (provider, model) pair or an HTTP host).
//
// The state machine is delegated to gobreaker: consecutive failures
// reaching FailureThreshold within the failure window transition
// Closed -> Open; after RecoveryTimeout the breaker admits probe
// requests in HalfOpen; SuccessThreshold consecutive successes close
// it, any failure reopens it.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	cb     *gobreaker.TwoStepCircuitBreaker

	mu       sync.Mutex
	openedAt time.Time
}

// NewCircuitBreaker creates a breaker for the named dependency.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	b := &CircuitBreaker{config: config}
	b.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.SuccessThreshold,
		Interval:    config.FailureWindow,
		Timeout:     config.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(_ string, _ gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.mu.Lock()
				b.openedAt = time.Now()
				b.mu.Unlock()
			}
		},
	})
	return b
}

// Allow asks the breaker for admission. On success it returns a done
// callback that must be invoked with the outcome of the guarded call;
// on denial it returns ErrCircuitBreakerOpen.
func (b *CircuitBreaker) Allow() (func(success bool), error) {
	done, err := b.cb.Allow()
	if err != nil {
		return nil, ErrCircuitBreakerOpen
	}
	return done, nil
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() CircuitState {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return CircuitOpen
	case gobreaker.StateHalfOpen:
		return CircuitHalfOpen
	default:
		return CircuitClosed
	}
}

// Name returns the dependency name this breaker guards.
func (b *CircuitBreaker) Name() string { return b.cb.Name() }

// OpenedAt returns when the circuit last opened (zero if never).
func (b *CircuitBreaker) OpenedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openedAt
}

// Config returns the breaker configuration.
func (b *CircuitBreaker) Config() CircuitBreakerConfig { return b.config }

// CircuitBreakerRegistry lazily creates one breaker per external
// dependency, all sharing a configuration.
type CircuitBreakerRegistry struct {
	mu       sync.Mutex
	config   CircuitBreakerConfig
	breakers map[string]*CircuitBreaker
}

// NewCircuitBreakerRegistry creates a registry with the given shared
// configuration.
func NewCircuitBreakerRegistry(config CircuitBreakerConfig) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for the named dependency, creating it on
// first use.
func (r *CircuitBreakerRegistry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(name, r.config)
	r.breakers[name] = b
	return b
}

// States snapshots the state of every registered breaker.
func (r *CircuitBreakerRegistry) States() map[string]CircuitState {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]CircuitState, len(r.breakers))
	for name, b := range r.breakers {
		states[name] = b.State()
	}
	return states
}
