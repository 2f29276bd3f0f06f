// Package resilience provides retry, model fallback and circuit breaking for
// remote model calls.
//
// Failures are classified into three kinds: transient failures are retried
// with backoff, unsupported-model failures switch the call to a fallback
// model, and terminal failures abort immediately. [Executor] drives a call
// through that policy; a per-model [CircuitBreaker] keeps a persistently
// failing model from being hammered.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
)

// ErrTransient marks failures worth retrying: timeouts, rate limits,
// server-side errors, dropped connections.
var ErrTransient = errors.New("transient remote failure")

// ErrUnsupportedModel marks a rejection of the requested model itself.
// Retrying the same model cannot succeed; the fallback model can.
var ErrUnsupportedModel = errors.New("unsupported model")

// ErrTerminal marks failures that neither retry nor fallback can fix, such
// as invalid credentials.
var ErrTerminal = errors.New("terminal remote failure")

// Transient wraps err as a transient failure.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Unsupported wraps err as an unsupported-model failure.
func Unsupported(err error) error {
	return fmt.Errorf("%w: %w", ErrUnsupportedModel, err)
}

// Terminal wraps err as a terminal failure.
func Terminal(err error) error {
	return fmt.Errorf("%w: %w", ErrTerminal, err)
}

// ClassifyHTTPStatus wraps err according to the HTTP status of a failed
// model API call:
//
//	408, 429, 5xx      → transient
//	400, 404           → unsupported model (the request named a model the
//	                     endpoint rejects)
//	401, 403, other 4xx → terminal
func ClassifyHTTPStatus(status int, err error) error {
	switch {
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return Transient(err)
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		return Unsupported(err)
	default:
		return Terminal(err)
	}
}

// ClassifyErr wraps an error that carries no HTTP status. Network-level and
// deadline errors are transient; anything already classified passes through;
// the rest is terminal.
func ClassifyErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTransient) || errors.Is(err, ErrUnsupportedModel) || errors.Is(err, ErrTerminal):
		return err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded):
		return Transient(err)
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			return Transient(err)
		}
		return Terminal(err)
	}
}
