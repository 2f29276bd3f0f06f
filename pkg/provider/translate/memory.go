package translate

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory wraps a Translator with rolling session context: the last few
// exchanges and a glossary of recurring technical terms are injected into
// every request, and each successful result is recorded back.
type Memory struct {
	inner        Translator
	maxExchanges int

	mu        sync.Mutex
	exchanges []Exchange
	termFreq  map[string]int
	termTrans map[string]string
}

var _ Translator = (*Memory)(nil)

// NewMemory wraps inner, keeping the last maxExchanges exchanges as context
// (default 6).
func NewMemory(inner Translator, maxExchanges int) *Memory {
	if maxExchanges <= 0 {
		maxExchanges = 6
	}
	return &Memory{
		inner:        inner,
		maxExchanges: maxExchanges,
		termFreq:     make(map[string]int),
		termTrans:    make(map[string]string),
	}
}

// Translate injects context and glossary, forwards to the wrapped
// translator, and records the exchange on success.
func (m *Memory) Translate(ctx context.Context, req Request) (Result, error) {
	m.mu.Lock()
	req.Context = append([]Exchange(nil), m.exchanges...)
	if len(m.termTrans) > 0 {
		req.Glossary = make(map[string]string, len(m.termTrans))
		for term, trans := range m.termTrans {
			req.Glossary[term] = trans
		}
	}
	m.mu.Unlock()

	res, err := m.inner.Translate(ctx, req)
	if err != nil {
		return res, err
	}

	m.mu.Lock()
	m.exchanges = append(m.exchanges, Exchange{Source: req.Text, Target: res.Text})
	if len(m.exchanges) > m.maxExchanges {
		m.exchanges = m.exchanges[len(m.exchanges)-m.maxExchanges:]
	}
	m.recordTermsLocked(req.Text, res.Text)
	m.mu.Unlock()

	return res, nil
}

// Reset clears all session context. Called on session start.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges = nil
	m.termFreq = make(map[string]int)
	m.termTrans = make(map[string]string)
}

// GlossarySnapshot returns the tracked terms sorted by frequency, most
// frequent first. Used by the status display.
func (m *Memory) GlossarySnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	terms := make([]string, 0, len(m.termFreq))
	for t := range m.termFreq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if m.termFreq[terms[i]] != m.termFreq[terms[j]] {
			return m.termFreq[terms[i]] > m.termFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	return terms
}

// recordTermsLocked tracks capitalised multi-use terms, pairing each with
// the translation it appeared in so later requests keep it stable.
func (m *Memory) recordTermsLocked(source, target string) {
	for _, word := range strings.Fields(source) {
		trimmed := strings.Trim(word, ".,;:!?\"'()")
		if len(trimmed) < 4 || !startsUpper(trimmed) {
			continue
		}
		m.termFreq[trimmed]++
		// A term seen twice is established vocabulary for this meeting.
		if m.termFreq[trimmed] >= 2 {
			if _, ok := m.termTrans[trimmed]; !ok && strings.Contains(target, trimmed) {
				m.termTrans[trimmed] = trimmed
			}
		}
	}
}

func startsUpper(s string) bool {
	r := []rune(s)
	return len(r) > 0 && r[0] >= 'A' && r[0] <= 'Z'
}
