package types_test

import (
	"errors"
	"testing"
	"time"

	"github.com/InfinitiBit/graphbit-go/types"
)

func breakerConfig() types.CircuitBreakerConfig {
	return types.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  50 * time.Millisecond,
		SuccessThreshold: 3,
		FailureWindow:    time.Minute,
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	breaker := types.NewCircuitBreaker("dep", breakerConfig())

	for i := 0; i < 5; i++ {
		if breaker.State() != types.CircuitClosed {
			t.Fatalf("breaker should stay closed before threshold (failure %d)", i)
		}
		done, err := breaker.Allow()
		if err != nil {
			t.Fatalf("closed breaker denied request %d: %v", i, err)
		}
		done(false)
	}

	if breaker.State() != types.CircuitOpen {
		t.Fatalf("breaker state = %s after %d failures, want open", breaker.State(), 5)
	}
	if breaker.OpenedAt().IsZero() {
		t.Error("OpenedAt not recorded")
	}

	// Denials are immediate and carry the sentinel.
	if _, err := breaker.Allow(); !errors.Is(err, types.ErrCircuitBreakerOpen) {
		t.Errorf("open breaker returned %v, want ErrCircuitBreakerOpen", err)
	}
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	breaker := types.NewCircuitBreaker("dep", breakerConfig())

	for i := 0; i < 4; i++ {
		done, _ := breaker.Allow()
		done(false)
	}
	done, _ := breaker.Allow()
	done(true) // resets the consecutive-failure count
	for i := 0; i < 4; i++ {
		done, _ := breaker.Allow()
		done(false)
	}

	if breaker.State() != types.CircuitClosed {
		t.Errorf("breaker opened despite an interleaved success; state = %s", breaker.State())
	}
}

func TestCircuitBreakerRecovery(t *testing.T) {
	breaker := types.NewCircuitBreaker("dep", breakerConfig())

	for i := 0; i < 5; i++ {
		done, _ := breaker.Allow()
		done(false)
	}
	if breaker.State() != types.CircuitOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(60 * time.Millisecond)

	// Recovery probes: SuccessThreshold consecutive successes close it.
	for i := 0; i < 3; i++ {
		done, err := breaker.Allow()
		if err != nil {
			t.Fatalf("half-open breaker denied probe %d: %v", i, err)
		}
		done(true)
	}

	if breaker.State() != types.CircuitClosed {
		t.Errorf("breaker state = %s after successful probes, want closed", breaker.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	breaker := types.NewCircuitBreaker("dep", breakerConfig())

	for i := 0; i < 5; i++ {
		done, _ := breaker.Allow()
		done(false)
	}
	time.Sleep(60 * time.Millisecond)

	done, err := breaker.Allow()
	if err != nil {
		t.Fatalf("half-open breaker denied probe: %v", err)
	}
	done(false)

	if breaker.State() != types.CircuitOpen {
		t.Errorf("breaker state = %s after failed probe, want open", breaker.State())
	}
}

func TestCircuitBreakerRegistry(t *testing.T) {
	registry := types.NewCircuitBreakerRegistry(breakerConfig())

	first := registry.Get("api.example.com")
	second := registry.Get("api.example.com")
	if first != second {
		t.Error("registry created two breakers for the same dependency")
	}

	other := registry.Get("other.example.com")
	if first == other {
		t.Error("registry shared a breaker across dependencies")
	}

	states := registry.States()
	if len(states) != 2 {
		t.Errorf("expected 2 registered breakers, got %d", len(states))
	}
	for name, state := range states {
		if state != types.CircuitClosed {
			t.Errorf("breaker %s state = %s, want closed", name, state)
		}
	}
}
