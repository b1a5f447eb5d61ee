package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errBackendDown = errors.New("backend down")

// fakeClock drives breaker timeouts without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	cb := NewCircuitBreaker(cfg)
	clock := newFakeClock()
	cb.now = clock.Now
	return cb, clock
}

func fail(cb *CircuitBreaker) error {
	return cb.Execute(func() error { return errBackendDown })
}

func succeed(cb *CircuitBreaker) error {
	return cb.Execute(func() error { return nil })
}

func TestBreakerDefaults(t *testing.T) {
	t.Parallel()

	// The CRM wiring relies on the zero-config defaults.
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "crm"})
	if cb.maxFailures != 5 {
		t.Errorf("maxFailures = %d, want 5", cb.maxFailures)
	}
	if cb.resetTimeout != 30*time.Second {
		t.Errorf("resetTimeout = %v, want 30s", cb.resetTimeout)
	}
	if cb.halfOpenMax != 3 {
		t.Errorf("halfOpenMax = %d, want 3", cb.halfOpenMax)
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("initial state = %v, want closed", got)
	}
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(CircuitBreakerConfig{Name: "zoho", MaxFailures: 3})
	for i := 0; i < 3; i++ {
		if err := fail(cb); !errors.Is(err, errBackendDown) {
			t.Fatalf("failure %d returned %v", i, err)
		}
	}
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state after trip = %v, want open", got)
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open breaker returned %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("open breaker still invoked the backend")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(CircuitBreakerConfig{Name: "zoho", MaxFailures: 2})
	if err := fail(cb); err == nil {
		t.Fatal("expected failure")
	}
	if err := succeed(cb); err != nil {
		t.Fatalf("success returned %v", err)
	}
	if err := fail(cb); err == nil {
		t.Fatal("expected failure")
	}
	// Two failures total, but never two in a row.
	if got := cb.State(); got != StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestBreakerProbesAfterResetTimeout(t *testing.T) {
	t.Parallel()

	cb, clock := newTestBreaker(CircuitBreakerConfig{
		Name: "elevenlabs", MaxFailures: 1, ResetTimeout: 10 * time.Second,
	})
	if err := fail(cb); err == nil {
		t.Fatal("expected failure")
	}
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	clock.Advance(11 * time.Second)
	if got := cb.State(); got != StateHalfOpen {
		t.Errorf("state after timeout = %v, want half-open", got)
	}

	called := false
	if err := cb.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("probe returned %v", err)
	}
	if !called {
		t.Error("probe call never reached the backend")
	}
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	t.Parallel()

	cb, clock := newTestBreaker(CircuitBreakerConfig{
		Name: "elevenlabs", MaxFailures: 1, ResetTimeout: 10 * time.Second,
	})
	if err := fail(cb); err == nil {
		t.Fatal("expected failure")
	}
	clock.Advance(11 * time.Second)

	if err := fail(cb); !errors.Is(err, errBackendDown) {
		t.Fatalf("probe returned %v", err)
	}
	if got := cb.State(); got != StateOpen {
		t.Errorf("state after failed probe = %v, want open", got)
	}
	if err := succeed(cb); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("call after failed probe returned %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerClosesAfterSuccessfulProbes(t *testing.T) {
	t.Parallel()

	cb, clock := newTestBreaker(CircuitBreakerConfig{
		Name: "zoho", MaxFailures: 1, ResetTimeout: 10 * time.Second, HalfOpenMax: 2,
	})
	if err := fail(cb); err == nil {
		t.Fatal("expected failure")
	}
	clock.Advance(11 * time.Second)

	if err := succeed(cb); err != nil {
		t.Fatalf("first probe returned %v", err)
	}
	if got := cb.State(); got != StateHalfOpen {
		t.Fatalf("state after one probe = %v, want half-open", got)
	}
	if err := succeed(cb); err != nil {
		t.Fatalf("second probe returned %v", err)
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("state after probes = %v, want closed", got)
	}
}

func TestBreakerLimitsConcurrentProbes(t *testing.T) {
	t.Parallel()

	cb, clock := newTestBreaker(CircuitBreakerConfig{
		Name: "zoho", MaxFailures: 1, ResetTimeout: 10 * time.Second, HalfOpenMax: 1,
	})
	if err := fail(cb); err == nil {
		t.Fatal("expected failure")
	}
	clock.Advance(11 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// The single probe slot is taken by the in-flight call.
	if err := succeed(cb); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe returned %v, want ErrCircuitOpen", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe returned %v", err)
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestBreakerReset(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(CircuitBreakerConfig{Name: "zoho", MaxFailures: 1})
	if err := fail(cb); err == nil {
		t.Fatal("expected failure")
	}
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	cb.Reset()
	if got := cb.State(); got != StateClosed {
		t.Errorf("state after reset = %v, want closed", got)
	}
	if err := succeed(cb); err != nil {
		t.Errorf("call after reset returned %v", err)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
