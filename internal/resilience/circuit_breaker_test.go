package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("test", maxFailures, time.Second)
	cb.now = clock.now
	return cb, clock
}

func succeed(ctx context.Context) error { return nil }
func fail(ctx context.Context) error { return errors.New("upstream error") }

func TestCircuitBreaker_StateClosed(t *testing.T) {
	cb, _ := newTestBreaker(3)

	if cb.GetState() != StateClosed {
		t.Errorf("Expected initial state to be Closed, got %s", cb.GetState())
	}
	if !cb.allowRequest() {
		t.Error("Expected to allow request in Closed state")
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(3)

	cb.RecordResult(false)
	cb.RecordResult(false)
	if cb.GetState() != StateClosed {
		t.Error("Expected state to still be Closed after 2 failures")
	}

	cb.RecordResult(false)
	if cb.GetState() != StateOpen {
		t.Error("Expected state to be Open after 3 failures")
	}
	if cb.allowRequest() {
		t.Error("Expected to not allow request in Open state")
	}
}

func TestCircuitBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(2)

	cb.RecordResult(false)
	cb.RecordResult(true)
	cb.RecordResult(false)
	if cb.GetState() != StateClosed {
		t.Error("Expected non-consecutive failures to keep the circuit Closed")
	}
}

func TestCircuitBreaker_HalfOpenThenClosed(t *testing.T) {
	cb, clock := newTestBreaker(1)

	cb.RecordResult(false)
	clock.advance(2 * time.Second)

	for i := 0; i < 3; i++ {
		if err := cb.Call(context.Background(), succeed); err != nil {
			t.Fatalf("Probe %d rejected: %v", i, err)
		}
	}

	if cb.GetState() != StateClosed {
		t.Errorf("Expected Closed after successful probes, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb, clock := newTestBreaker(1)

	cb.RecordResult(false)
	clock.advance(2 * time.Second)

	for i := 0; i < 3; i++ {
		if !cb.allowRequest() {
			t.Fatalf("Expected probe %d to be admitted", i)
		}
	}
	if cb.allowRequest() {
		t.Error("Expected a fourth concurrent probe to be rejected")
	}
	if cb.GetState() != StateHalfOpen {
		t.Errorf("Expected HalfOpen, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_OpenAfterFailureInHalfOpen(t *testing.T) {
	cb, clock := newTestBreaker(1)

	cb.RecordResult(false)
	clock.advance(2 * time.Second)

	if err := cb.Call(context.Background(), fail); err == nil {
		t.Fatal("Expected probe error to be returned")
	}
	if cb.GetState() != StateOpen {
		t.Error("Expected state to be Open after failure in HalfOpen")
	}
}

func TestCircuitBreaker_CallOpen(t *testing.T) {
	cb, _ := newTestBreaker(1)
	cb.RecordResult(false)

	called := false
	err := cb.Call(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected fn not to be called while open")
	}
}

func TestCircuitBreaker_CancelledCallerIsNotAFailure(t *testing.T) {
	cb, _ := newTestBreaker(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := cb.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Error("Expected caller cancellation not to open the circuit")
	}
}

func TestCircuitBreaker_Observer(t *testing.T) {
	cb, _ := newTestBreaker(1)
	var states []CircuitState
	cb.WithObserver(func(name string, state CircuitState, failed bool) {
		if name != "test" {
			t.Errorf("Expected name 'test', got %q", name)
		}
		states = append(states, state)
	})

	cb.Call(context.Background(), succeed)
	cb.Call(context.Background(), fail)

	if len(states) != 2 || states[0] != StateClosed || states[1] != StateOpen {
		t.Errorf("Unexpected observed states %v", states)
	}
}

func TestCircuitBreaker_GetStats(t *testing.T) {
	cb, _ := newTestBreaker(3)

	cb.RecordResult(true)
	cb.RecordResult(true)
	cb.RecordResult(false)

	state, requestCount, failureCount, failureRate := cb.GetStats()

	if state != StateClosed {
		t.Errorf("Expected state Closed, got %s", state)
	}
	if requestCount != 3 {
		t.Errorf("Expected 3 requests, got %d", requestCount)
	}
	if failureCount != 1 {
		t.Errorf("Expected 1 failure, got %d", failureCount)
	}
	if failureRate < 33.0 || failureRate > 34.0 {
		t.Errorf("Expected failure rate around 33.33%%, got %.2f%%", failureRate)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(3)

	cb.RecordResult(false)
	cb.RecordResult(false)
	cb.RecordResult(false)
	if cb.GetState() != StateOpen {
		t.Fatal("Expected circuit to be Open")
	}

	cb.Reset()

	if cb.GetState() != StateClosed {
		t.Error("Expected state to be Closed after reset")
	}
}

func TestCircuitBreaker_Rejecting(t *testing.T) {
	cb, clock := newTestBreaker(1)

	if cb.Rejecting() {
		t.Error("Expected a closed breaker to accept calls")
	}
	cb.RecordResult(false)
	if !cb.Rejecting() {
		t.Error("Expected an open breaker to reject calls")
	}
	clock.advance(2 * time.Second)
	if cb.Rejecting() {
		t.Error("Expected calls to be let through once the reset timeout has passed")
	}
}
