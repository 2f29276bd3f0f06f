// Package mock provides a scripted stt.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/alonsorgl28/teams-translator/pkg/provider/stt"
)

// Result scripts one Transcribe call.
type Result struct {
	Transcript stt.Transcript
	Err        error
}

// Provider returns scripted results in order, repeating the last one when
// the script runs out. It records every request it sees.
type Provider struct {
	Results []Result

	// Fn, when set, overrides the scripted results entirely.
	Fn func(ctx context.Context, req stt.Request) (stt.Transcript, error)

	mu       sync.Mutex
	requests []stt.Request
	calls    int
}

var _ stt.Provider = (*Provider)(nil)

func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	idx := p.calls
	p.calls++
	p.mu.Unlock()

	if p.Fn != nil {
		return p.Fn(ctx, req)
	}
	if len(p.Results) == 0 {
		return stt.Transcript{}, nil
	}
	if idx >= len(p.Results) {
		idx = len(p.Results) - 1
	}
	r := p.Results[idx]
	return r.Transcript, r.Err
}

// Requests returns a copy of all observed requests.
func (p *Provider) Requests() []stt.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]stt.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Calls returns how many times Transcribe ran.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
