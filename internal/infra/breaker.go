package infra

import (
	"fmt"
	"sync"
	"time"
)

// CircuitBreaker fails fast once the wiki has returned a run of transport or
// server failures, so a dead test wiki does not stall every scenario for the
// full HTTP timeout.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold    int
	resetTimeout time.Duration
	halfOpenMax  int
	now          func() time.Time

	state         CircuitState
	failures      int
	lastFailure   time.Time
	halfOpenSince time.Time
	halfOpenCount int
}

// CircuitState represents the current state of the circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // requests flow
	CircuitOpen                         // requests rejected
	CircuitHalfOpen                     // probing
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker. Zero fields take defaults.
type BreakerConfig struct {
	Threshold    int           // consecutive failures before opening (default 5)
	ResetTimeout time.Duration // open duration before probing (default 30s)
	HalfOpenMax  int           // probe requests allowed while half-open (default 2)
}

// NewCircuitBreaker creates a circuit breaker with default settings
func NewCircuitBreaker() *CircuitBreaker {
	return NewCircuitBreakerWithConfig(BreakerConfig{})
}

// NewCircuitBreakerWithConfig creates a circuit breaker from cfg
func NewCircuitBreakerWithConfig(cfg BreakerConfig) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 2
	}
	return &CircuitBreaker{
		threshold:    cfg.Threshold,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		now:          time.Now,
		state:        CircuitClosed,
	}
}

// Allow reports whether a request may proceed
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) < cb.resetTimeout {
			return false
		}
		cb.state = CircuitHalfOpen
		cb.halfOpenSince = cb.now()
		cb.halfOpenCount = 1
		return true
	case CircuitHalfOpen:
		// Probes that never reported back stop counting after resetTimeout
		if cb.now().Sub(cb.halfOpenSince) >= cb.resetTimeout {
			cb.halfOpenSince = cb.now()
			cb.halfOpenCount = 1
			return true
		}
		if cb.halfOpenCount < cb.halfOpenMax {
			cb.halfOpenCount++
			return true
		}
		return false
	}
	return false
}

// RecordSuccess resets the failure run and closes a half-open circuit
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
		cb.halfOpenCount = 0
	}
}

// RecordFailure extends the failure run, opening the circuit at the threshold
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()

	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.threshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.halfOpenCount = 0
	}
}

// Release returns a probe slot taken by Allow when the request ended
// without a success or failure to report, e.g. because it was canceled.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen && cb.halfOpenCount > 0 {
		cb.halfOpenCount--
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Check returns nil when a request may proceed and *ErrCircuitOpen otherwise
func (cb *CircuitBreaker) Check() error {
	if cb.Allow() {
		return nil
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return &ErrCircuitOpen{
		Failures: cb.failures,
		RetryAt:  cb.lastFailure.Add(cb.resetTimeout),
	}
}

// Stats returns a snapshot of the breaker state
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:            cb.state.String(),
		HalfOpenProbes:   cb.halfOpenCount,
		ConsecutiveFails: cb.failures,
		LastFailure:      cb.lastFailure,
	}
}

// CircuitBreakerStats contains circuit breaker statistics
type CircuitBreakerStats struct {
	State            string    `json:"state"`
	HalfOpenProbes   int       `json:"half_open_probes,omitempty"`
	ConsecutiveFails int       `json:"consecutive_failures"`
	LastFailure      time.Time `json:"last_failure,omitempty"`
}

// ErrCircuitOpen is returned while the circuit rejects requests
type ErrCircuitOpen struct {
	Failures int
	RetryAt  time.Time
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open after %d consecutive failures, retry after %s",
		e.Failures, e.RetryAt.Format(time.RFC3339))
}
