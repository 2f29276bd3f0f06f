package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Outcome classifies how an [Executor.Do] call completed.
type Outcome int

const (
	// OutcomeSuccess means the primary model succeeded on the first attempt.
	OutcomeSuccess Outcome = iota
	// OutcomeRetried means at least one transient failure was retried before
	// success.
	OutcomeRetried
	// OutcomeFallbackUsed means the fallback model produced the result.
	OutcomeFallbackUsed
	// OutcomeFailed means no model produced a result.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetried:
		return "retried"
	case OutcomeFallbackUsed:
		return "fallback_used"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrExhausted is returned when every permitted attempt on every permitted
// model has failed.
var ErrExhausted = errors.New("all attempts exhausted")

// Call invokes a remote operation against a specific model. The returned
// error must be classified (see [ClassifyHTTPStatus] and [ClassifyErr]) for
// the executor's retry and fallback decisions to apply.
type Call[R any] func(ctx context.Context, model string) (R, error)

// ExecutorConfig tunes an [Executor]. Zero fields take defaults.
type ExecutorConfig struct {
	// MaxAttempts bounds attempts per model for transient failures.
	// Default: 3.
	MaxAttempts int
	// BackoffBase is the base delay before retry n, scaled linearly
	// (base, 2×base, ...). Default: 400ms.
	BackoffBase time.Duration
	// Breaker configures the per-model circuit breakers.
	Breaker CircuitBreakerConfig
	// Logger for attempt-level events. Nil means slog.Default().
	Logger *slog.Logger
}

// Executor drives a remote model call through retry, fallback and circuit
// breaking:
//
//   - transient failures are retried up to MaxAttempts times with linear
//     backoff, honouring context cancellation during the wait;
//   - an unsupported-model failure switches to the fallback model at most
//     once per call, and the switch is sticky: after the fallback succeeds,
//     later calls start there and the primary is left alone for the rest of
//     the session;
//   - terminal failures abort immediately;
//   - a model whose breaker is open is skipped.
//
// Safe for concurrent use.
type Executor[R any] struct {
	primary  string
	fallback string
	cfg      ExecutorConfig
	log      *slog.Logger

	mu       sync.Mutex
	promoted bool
	breakers map[string]*CircuitBreaker

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor for the given primary model and optional
// fallback model (empty string disables fallback).
func NewExecutor[R any](primary, fallback string, cfg ExecutorConfig) *Executor[R] {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 400 * time.Millisecond
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Executor[R]{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		log:      log,
		breakers: make(map[string]*CircuitBreaker),
		sleep:    sleepCtx,
	}
}

// Do runs call through the executor's policy and reports how it completed.
func (e *Executor[R]) Do(ctx context.Context, call Call[R]) (R, Outcome, error) {
	var zero R

	model := e.startModel()
	switched := model == e.fallback && model != e.primary
	// Breaker-open switches are not sticky: the primary's breaker will
	// half-open on its own, so later calls should try it again.
	sticky := false

	var lastErr error
	for {
		result, retried, err := e.tryModel(ctx, model, call)
		if err == nil {
			if switched {
				if sticky {
					e.promote(model)
				}
				return result, OutcomeFallbackUsed, nil
			}
			if retried {
				return result, OutcomeRetried, nil
			}
			return result, OutcomeSuccess, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, OutcomeFailed, ctx.Err()
		}
		if errors.Is(err, ErrTerminal) {
			return zero, OutcomeFailed, err
		}

		// One switch per call, and only when a fallback exists.
		canSwitch := !switched && e.fallback != "" && e.fallback != model
		if canSwitch && (errors.Is(err, ErrUnsupportedModel) || errors.Is(err, ErrCircuitOpen)) {
			e.log.Warn("switching to fallback model",
				"from", model, "to", e.fallback, "cause", err)
			model = e.fallback
			switched = true
			sticky = errors.Is(err, ErrUnsupportedModel)
			continue
		}
		return zero, OutcomeFailed, fmt.Errorf("%w: model %q: %w", ErrExhausted, model, lastErr)
	}
}

// tryModel attempts the call on one model, retrying transient failures.
// retried reports whether any retry happened before success.
func (e *Executor[R]) tryModel(ctx context.Context, model string, call Call[R]) (R, bool, error) {
	var zero R
	cb := e.breaker(model)

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := cb.Allow(); err != nil {
			return zero, false, err
		}
		result, err := call(ctx, model)
		cb.Record(err)
		if err == nil {
			return result, attempt > 1, nil
		}
		lastErr = err

		if !errors.Is(err, ErrTransient) || attempt == e.cfg.MaxAttempts {
			return zero, false, err
		}
		delay := time.Duration(attempt) * e.cfg.BackoffBase
		e.log.Debug("retrying after transient failure",
			"model", model, "attempt", attempt, "delay", delay, "err", err)
		if err := e.sleep(ctx, delay); err != nil {
			return zero, false, err
		}
	}
	return zero, false, lastErr
}

// startModel returns the model calls should begin with, honouring sticky
// promotion.
func (e *Executor[R]) startModel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.promoted && e.fallback != "" {
		return e.fallback
	}
	return e.primary
}

func (e *Executor[R]) promote(model string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.promoted && model == e.fallback {
		e.promoted = true
		e.log.Info("fallback model promoted for the rest of the session",
			"model", model)
	}
}

// Promoted reports whether the fallback model has been promoted.
func (e *Executor[R]) Promoted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.promoted
}

func (e *Executor[R]) breaker(model string) *CircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	cb, ok := e.breakers[model]
	if !ok {
		cfg := e.cfg.Breaker
		cfg.Name = model
		cb = NewCircuitBreaker(cfg)
		e.breakers[model] = cb
	}
	return cb
}

// sleepCtx waits for d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
