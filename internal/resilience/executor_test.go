package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("test error")

func newTestExecutor(primary, fallback string) *Executor[string] {
	e := NewExecutor[string](primary, fallback, ExecutorConfig{
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
	})
	e.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return e
}

func TestExecutor_PrimarySuccess(t *testing.T) {
	e := newTestExecutor("primary", "fallback")

	result, outcome, err := e.Do(context.Background(), func(ctx context.Context, model string) (string, error) {
		return "from-" + model, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-primary" {
		t.Fatalf("result = %q, want from-primary", result)
	}
	if outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success", outcome)
	}
}

func TestExecutor_TransientRetriesThenSucceeds(t *testing.T) {
	e := newTestExecutor("primary", "")

	calls := 0
	result, outcome, err := e.Do(context.Background(), func(ctx context.Context, model string) (string, error) {
		calls++
		if calls < 3 {
			return "", Transient(errTest)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("result = %q, want ok", result)
	}
	if outcome != OutcomeRetried {
		t.Fatalf("outcome = %v, want retried", outcome)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestExecutor_TransientExhaustsAttempts(t *testing.T) {
	e := newTestExecutor("primary", "")

	calls := 0
	_, outcome, err := e.Do(context.Background(), func(ctx context.Context, model string) (string, error) {
		calls++
		return "", Transient(errTest)
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", outcome)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestExecutor_UnsupportedSwitchesToFallbackOnce(t *testing.T) {
	e := newTestExecutor("primary", "fallback")

	var models []string
	result, outcome, err := e.Do(context.Background(), func(ctx context.Context, model string) (string, error) {
		models = append(models, model)
		if model == "primary" {
			return "", Unsupported(errTest)
		}
		return "from-" + model, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-fallback" {
		t.Fatalf("result = %q, want from-fallback", result)
	}
	if outcome != OutcomeFallbackUsed {
		t.Fatalf("outcome = %v, want fallback_used", outcome)
	}
	// Exactly one attempt on each model: unsupported is not retried.
	want := []string{"primary", "fallback"}
	if len(models) != len(want) || models[0] != want[0] || models[1] != want[1] {
		t.Fatalf("models = %v, want %v", models, want)
	}
}

func TestExecutor_UnsupportedOnBothModelsFails(t *testing.T) {
	e := newTestExecutor("primary", "fallback")

	calls := 0
	_, outcome, err := e.Do(context.Background(), func(ctx context.Context, model string) (string, error) {
		calls++
		return "", Unsupported(errTest)
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", outcome)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (one switch per call)", calls)
	}
}

func TestExecutor_StickyPromotion(t *testing.T) {
	e := newTestExecutor("primary", "fallback")

	do := func() {
		t.Helper()
		_, _, err := e.Do(context.Background(), func(ctx context.Context, model string) (string, error) {
			if model == "primary" {
				return "", Unsupported(errTest)
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	do()
	if !e.Promoted() {
		t.Fatal("executor should be promoted after fallback success")
	}

	// Later calls must start on the fallback, never touching the primary.
	var models []string
	_, outcome, err := e.Do(context.Background(), func(ctx context.Context, model string) (string, error) {
		models = append(models, model)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0] != "fallback" {
		t.Fatalf("models = %v, want [fallback]", models)
	}
	if outcome != OutcomeFallbackUsed {
		t.Fatalf("outcome = %v, want fallback_used", outcome)
	}
}

func TestExecutor_TerminalFailsFast(t *testing.T) {
	e := newTestExecutor("primary", "fallback")

	calls := 0
	_, outcome, err := e.Do(context.Background(), func(ctx context.Context, model string) (string, error) {
		calls++
		return "", Terminal(errTest)
	})
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("err = %v, want ErrTerminal", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", outcome)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestExecutor_BackoffHonoursCancellation(t *testing.T) {
	e := NewExecutor[string]("primary", "", ExecutorConfig{
		MaxAttempts: 3,
		BackoffBase: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := e.Do(ctx, func(ctx context.Context, model string) (string, error) {
		return "", Transient(errTest)
	})
	if err == nil {
		t.Fatal("expected error from cancelled backoff")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Do blocked %v; backoff must yield to cancellation", elapsed)
	}
}

func TestExecutor_OpenPrimaryBreakerRoutesToFallback(t *testing.T) {
	e := NewExecutor[string]("primary", "fallback", ExecutorConfig{
		MaxAttempts: 1,
		Breaker:     CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	// Trip the primary breaker with terminal failures.
	for i := 0; i < 2; i++ {
		_, _, _ = e.Do(context.Background(), func(ctx context.Context, model string) (string, error) {
			if model == "primary" {
				return "", Terminal(errTest)
			}
			return "ok", nil
		})
	}

	var models []string
	result, outcome, err := e.Do(context.Background(), func(ctx context.Context, model string) (string, error) {
		models = append(models, model)
		return "from-" + model, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-fallback" {
		t.Fatalf("result = %q, want from-fallback (primary breaker open)", result)
	}
	if outcome != OutcomeFallbackUsed {
		t.Fatalf("outcome = %v, want fallback_used", outcome)
	}
	if len(models) != 1 || models[0] != "fallback" {
		t.Fatalf("models = %v, want [fallback]", models)
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})

	for i := 0; i < 2; i++ {
		if err := cb.Allow(); err != nil {
			t.Fatalf("Allow() on attempt %d: %v", i, err)
		}
		cb.Record(errTest)
	}
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow() = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})

	_ = cb.Allow()
	cb.Record(errTest)
	_ = cb.Allow()
	cb.Record(nil)
	_ = cb.Allow()
	cb.Record(errTest)

	if got := cb.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed (success should reset counter)", got)
	}
}

func TestCircuitBreaker_HalfOpenClosesAfterProbes(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Nanosecond,
		HalfOpenMax:  2,
	})

	_ = cb.Allow()
	cb.Record(errTest)
	time.Sleep(time.Millisecond)

	for i := 0; i < 2; i++ {
		if err := cb.Allow(); err != nil {
			t.Fatalf("probe %d rejected: %v", i, err)
		}
		cb.Record(nil)
	}
	if got := cb.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed after successful probes", got)
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{429, ErrTransient},
		{500, ErrTransient},
		{503, ErrTransient},
		{408, ErrTransient},
		{400, ErrUnsupportedModel},
		{404, ErrUnsupportedModel},
		{401, ErrTerminal},
		{403, ErrTerminal},
		{422, ErrTerminal},
	}
	for _, tc := range cases {
		got := ClassifyHTTPStatus(tc.status, errTest)
		if !errors.Is(got, tc.want) {
			t.Errorf("ClassifyHTTPStatus(%d) = %v, want %v", tc.status, got, tc.want)
		}
		if !errors.Is(got, errTest) {
			t.Errorf("ClassifyHTTPStatus(%d) lost the original error", tc.status)
		}
	}
}

func TestClassifyErr_DeadlineIsTransient(t *testing.T) {
	got := ClassifyErr(context.DeadlineExceeded)
	if !errors.Is(got, ErrTransient) {
		t.Fatalf("ClassifyErr(DeadlineExceeded) = %v, want transient", got)
	}
}
