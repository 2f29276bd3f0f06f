// Package mock provides a scripted translate.Translator for tests.
package mock

import (
	"context"
	"sync"

	"github.com/alonsorgl28/teams-translator/pkg/provider/translate"
)

// Translator applies Fn to every request, or echoes the source text with
// Prefix when Fn is nil. It records every request it sees.
type Translator struct {
	Prefix string
	Fn     func(ctx context.Context, req translate.Request) (translate.Result, error)

	mu       sync.Mutex
	requests []translate.Request
}

var _ translate.Translator = (*Translator)(nil)

func (t *Translator) Translate(ctx context.Context, req translate.Request) (translate.Result, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()

	if t.Fn != nil {
		return t.Fn(ctx, req)
	}
	return translate.Result{Text: t.Prefix + req.Text}, nil
}

// Requests returns a copy of all observed requests.
func (t *Translator) Requests() []translate.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]translate.Request, len(t.requests))
	copy(out, t.requests)
	return out
}
