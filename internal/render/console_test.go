package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alonsorgl28/teams-translator/internal/pipeline"
)

func fragment(seq uint64, text string, latency time.Duration) pipeline.EmittedFragment {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.Local)
	return pipeline.EmittedFragment{
		Seq:             seq,
		Text:            text,
		FirstCapturedAt: now.Add(-latency),
		EmittedAt:       now,
		Latency:         latency,
	}
}

func TestConsole_PlainLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Out: &buf})

	c.Render(fragment(1, "Hola a todos.", 2*time.Second))
	c.Render(fragment(2, "Bienvenidos.", 3*time.Second))

	want := "Hola a todos.\nBienvenidos.\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestConsole_TimestampsAndLatency(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Out: &buf, Timestamps: true, ShowLatency: true})

	c.Render(fragment(1, "Hola.", 2300*time.Millisecond))

	got := buf.String()
	if !strings.HasPrefix(got, "[15:09:26] Hola.") {
		t.Fatalf("output = %q, want timestamp prefix", got)
	}
	if !strings.Contains(got, "(2.3s)") {
		t.Fatalf("output = %q, want latency suffix", got)
	}
}

func TestConsole_HistoryBounded(t *testing.T) {
	c := NewConsole(ConsoleConfig{Out: &bytes.Buffer{}, HistorySize: 2})

	c.Render(fragment(1, "one", time.Second))
	c.Render(fragment(2, "two", time.Second))
	c.Render(fragment(3, "three", time.Second))

	h := c.History()
	if len(h) != 2 {
		t.Fatalf("history length = %d, want 2", len(h))
	}
	if h[0].Text != "two" || h[1].Text != "three" {
		t.Fatalf("history = %v, want the two newest lines", h)
	}
}
