package infra

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg BreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreakerWithConfig(cfg)
	cb.now = clock.Now
	return cb, clock
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker()
	if cb.threshold != 5 {
		t.Errorf("threshold = %d, want 5", cb.threshold)
	}
	if cb.resetTimeout != 30*time.Second {
		t.Errorf("resetTimeout = %v, want 30s", cb.resetTimeout)
	}
	if cb.halfOpenMax != 2 {
		t.Errorf("halfOpenMax = %d, want 2", cb.halfOpenMax)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{Threshold: 3})

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if cb.State() != CircuitClosed {
			t.Fatalf("opened after %d failures, want 3", i+1)
		}
	}
	cb.RecordFailure()

	if cb.State() != CircuitOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	if cb.Allow() {
		t.Error("open circuit should reject requests")
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(BreakerConfig{Threshold: 1, ResetTimeout: time.Minute})
	cb.RecordFailure()

	clock.Advance(2 * time.Minute)
	if !cb.Allow() {
		t.Fatal("expected probe request after reset timeout")
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state = %v, want half-open", cb.State())
	}
	if !cb.Allow() {
		t.Error("a second probe should be allowed by default")
	}
	if cb.Allow() {
		t.Error("a third probe should be rejected")
	}

	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Errorf("state = %v, want closed after successful probe", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(BreakerConfig{Threshold: 1, ResetTimeout: time.Minute})
	cb.RecordFailure()
	clock.Advance(2 * time.Minute)
	_ = cb.Allow()

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Errorf("state = %v, want open", cb.State())
	}
}

func TestCircuitBreaker_ReleaseFreesProbe(t *testing.T) {
	cb, clock := newTestBreaker(BreakerConfig{Threshold: 1, ResetTimeout: time.Minute, HalfOpenMax: 1})
	cb.RecordFailure()
	clock.Advance(2 * time.Minute)

	if !cb.Allow() {
		t.Fatal("expected probe request after reset timeout")
	}
	if cb.Allow() {
		t.Fatal("probe slot should be taken")
	}

	cb.Release()
	if !cb.Allow() {
		t.Error("released probe slot should be available again")
	}
	if cb.State() != CircuitHalfOpen {
		t.Errorf("state = %v, want half-open", cb.State())
	}
}

func TestCircuitBreaker_ReleaseWhenClosedIsNoop(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{})
	cb.Release()
	if cb.State() != CircuitClosed || cb.Stats().HalfOpenProbes != 0 {
		t.Errorf("Release on closed circuit changed state: %+v", cb.Stats())
	}
}

func TestCircuitBreaker_LostProbeExpires(t *testing.T) {
	cb, clock := newTestBreaker(BreakerConfig{Threshold: 1, ResetTimeout: time.Minute, HalfOpenMax: 1})
	cb.RecordFailure()
	clock.Advance(2 * time.Minute)

	if !cb.Allow() {
		t.Fatal("expected probe request after reset timeout")
	}
	// The probe never reports back
	clock.Advance(30 * time.Second)
	if cb.Allow() {
		t.Fatal("probe slot should still be taken before reset timeout")
	}

	clock.Advance(31 * time.Second)
	if !cb.Allow() {
		t.Error("expected a new probe once the lost one expired")
	}
	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_SuccessResetsRun(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{Threshold: 3})
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.State() != CircuitClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
	if got := cb.Stats().ConsecutiveFails; got != 2 {
		t.Errorf("ConsecutiveFails = %d, want 2", got)
	}
}

func TestCircuitBreaker_Check(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{Threshold: 1, ResetTimeout: time.Minute})
	if err := cb.Check(); err != nil {
		t.Fatalf("closed circuit Check() = %v", err)
	}

	cb.RecordFailure()
	err := cb.Check()
	var open *ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("Check() = %v, want *ErrCircuitOpen", err)
	}
	if open.Failures != 1 {
		t.Errorf("Failures = %d, want 1", open.Failures)
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state CircuitState
		want  string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("CircuitState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
