package translate

import (
	"context"
	"fmt"
	"testing"
)

type captureTranslator struct {
	requests []Request
	reply    func(Request) (Result, error)
}

func (c *captureTranslator) Translate(_ context.Context, req Request) (Result, error) {
	c.requests = append(c.requests, req)
	if c.reply != nil {
		return c.reply(req)
	}
	return Result{Text: "t:" + req.Text}, nil
}

func TestMemory_InjectsRecentExchanges(t *testing.T) {
	inner := &captureTranslator{}
	m := NewMemory(inner, 3)

	for i := 0; i < 2; i++ {
		if _, err := m.Translate(context.Background(), Request{Text: fmt.Sprintf("line %d", i)}); err != nil {
			t.Fatalf("Translate: %v", err)
		}
	}

	last := inner.requests[len(inner.requests)-1]
	if len(last.Context) != 1 {
		t.Fatalf("context len = %d, want 1", len(last.Context))
	}
	if last.Context[0].Source != "line 0" || last.Context[0].Target != "t:line 0" {
		t.Fatalf("context[0] = %+v", last.Context[0])
	}
}

func TestMemory_BoundsContext(t *testing.T) {
	inner := &captureTranslator{}
	m := NewMemory(inner, 2)

	for i := 0; i < 5; i++ {
		if _, err := m.Translate(context.Background(), Request{Text: fmt.Sprintf("line %d", i)}); err != nil {
			t.Fatalf("Translate: %v", err)
		}
	}

	last := inner.requests[len(inner.requests)-1]
	if len(last.Context) != 2 {
		t.Fatalf("context len = %d, want 2", len(last.Context))
	}
	if last.Context[0].Source != "line 2" {
		t.Fatalf("oldest kept exchange = %q, want line 2", last.Context[0].Source)
	}
}

func TestMemory_FailedCallsLeaveNoTrace(t *testing.T) {
	inner := &captureTranslator{reply: func(req Request) (Result, error) {
		return Result{}, fmt.Errorf("boom")
	}}
	m := NewMemory(inner, 3)

	_, _ = m.Translate(context.Background(), Request{Text: "bad line"})

	inner.reply = nil
	if _, err := m.Translate(context.Background(), Request{Text: "good line"}); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	last := inner.requests[len(inner.requests)-1]
	if len(last.Context) != 0 {
		t.Fatalf("context = %v; failed exchanges must not be remembered", last.Context)
	}
}

func TestMemory_GlossaryTracksRepeatedTerms(t *testing.T) {
	inner := &captureTranslator{reply: func(req Request) (Result, error) {
		return Result{Text: req.Text}, nil // identity keeps terms visible in the target
	}}
	m := NewMemory(inner, 4)

	for i := 0; i < 2; i++ {
		if _, err := m.Translate(context.Background(), Request{Text: "Substation Norte reports nominal load"}); err != nil {
			t.Fatalf("Translate: %v", err)
		}
	}
	if _, err := m.Translate(context.Background(), Request{Text: "status check"}); err != nil {
		t.Fatalf("Translate: %v", err)
	}

	last := inner.requests[len(inner.requests)-1]
	if _, ok := last.Glossary["Substation"]; !ok {
		t.Fatalf("glossary = %v, want Substation tracked", last.Glossary)
	}

	terms := m.GlossarySnapshot()
	if len(terms) == 0 {
		t.Fatal("GlossarySnapshot is empty")
	}
}

func TestMemory_Reset(t *testing.T) {
	inner := &captureTranslator{}
	m := NewMemory(inner, 3)
	if _, err := m.Translate(context.Background(), Request{Text: "before reset"}); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	m.Reset()
	if _, err := m.Translate(context.Background(), Request{Text: "after reset"}); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	last := inner.requests[len(inner.requests)-1]
	if len(last.Context) != 0 {
		t.Fatalf("context after reset = %v, want empty", last.Context)
	}
}
