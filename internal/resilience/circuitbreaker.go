package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Allow] while the breaker is
// open and its reset timeout has not elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota
	// StateOpen rejects calls until the reset timeout elapses.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through to decide
	// whether to close again.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero fields take defaults.
type CircuitBreakerConfig struct {
	// Name labels the breaker in logs, typically the model it guards.
	Name string
	// MaxFailures is the consecutive-failure count that opens the breaker.
	// Default: 5.
	MaxFailures int
	// ResetTimeout is how long the breaker stays open before probing.
	// Default: 30s.
	ResetTimeout time.Duration
	// HalfOpenMax is the probe budget in the half-open state. Default: 3.
	HalfOpenMax int
}

// CircuitBreaker is a three-state breaker guarding one remote model. The
// executor asks Allow before a call and reports the result with Record; the
// split lets the executor pick a different model when the breaker refuses,
// instead of wrapping the call in a closure.
//
// Safe for concurrent use.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu           sync.Mutex
	state        State
	failures     int
	lastFailure  time.Time
	halfOpenUsed int
	halfOpenGood int
}

// NewCircuitBreaker creates a breaker with defaults filled in.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
	}
}

// Allow reports whether a call may proceed, returning ErrCircuitOpen when it
// may not. A successful Allow must be paired with exactly one Record.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.resetTimeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.halfOpenUsed = 0
		cb.halfOpenGood = 0
		slog.Info("circuit breaker half-open", "name", cb.name)
	case StateHalfOpen:
		if cb.halfOpenUsed >= cb.halfOpenMax {
			return ErrCircuitOpen
		}
	}
	if cb.state == StateHalfOpen {
		cb.halfOpenUsed++
	}
	return nil
}

// Record reports the result of an allowed call.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.lastFailure = time.Now()
		if cb.state == StateHalfOpen {
			// Any failed probe re-opens immediately.
			cb.state = StateOpen
			cb.failures = cb.maxFailures
			slog.Warn("circuit breaker re-opened", "name", cb.name)
			return
		}
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.state = StateOpen
			slog.Warn("circuit breaker opened",
				"name", cb.name, "consecutive_failures", cb.failures)
		}
		return
	}

	if cb.state == StateHalfOpen {
		cb.halfOpenGood++
		if cb.halfOpenGood >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failures = 0
			slog.Info("circuit breaker closed", "name", cb.name)
		}
		return
	}
	cb.failures = 0
}

// State returns the current state, reporting half-open when an open breaker
// has aged past its reset timeout.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker closed and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenUsed = 0
	cb.halfOpenGood = 0
}
