package transcript

import (
	"strings"
	"testing"
	"time"
)

func TestCleanNoise_StripsURLsAndWatermarks(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Check the docs at https://example.com/page for details", "Check the docs at for details"},
		{"Learn English for free www.engvid.com", "Learn English for free"},
		{"Subtitles by the Amara.org community", ""},
		{"Gracias por ver el video", ""},
		{"[Música]", ""},
		{"Plain sentence stays intact.", "Plain sentence stays intact."},
	}
	for _, tc := range cases {
		got := CleanNoise(tc.in)
		if got != tc.want {
			t.Errorf("CleanNoise(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanNoise_CollapsesRepeatedTokens(t *testing.T) {
	got := CleanNoise("go go go go go stop")
	if got != "go go go stop" {
		t.Fatalf("got %q, want %q", got, "go go go stop")
	}
}

func TestLooksGibberish(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"tripled long word", "the word transformer transformer transformer appeared", true},
		{"collapsed vocabulary", "ok ok ok ok yes ok ok ok ok ok ok yes", true},
		{"normal sentence", "the operator closed the breaker after the inspection", false},
		{"short fragment", "yes exactly", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LooksGibberish(tc.in); got != tc.want {
				t.Fatalf("LooksGibberish(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestTrimOverlap(t *testing.T) {
	prev := "we should review the maintenance schedule for the transformers"
	in := "schedule for the transformers before the next outage window"

	got := TrimOverlap(prev, in)
	want := "before the next outage window"
	if got != want {
		t.Fatalf("TrimOverlap = %q, want %q", got, want)
	}
}

func TestTrimOverlap_IgnoresCaseAndPunctuation(t *testing.T) {
	got := TrimOverlap("and close the main breaker.", "Close the main breaker and open the bypass")
	want := "and open the bypass"
	if got != want {
		t.Fatalf("TrimOverlap = %q, want %q", got, want)
	}
}

func TestTrimOverlap_ShortEchoKept(t *testing.T) {
	// Two-token repeats may be legitimate speech, not window overlap.
	in := "the breaker tripped again"
	if got := TrimOverlap("please check the breaker", in); got != in {
		t.Fatalf("TrimOverlap = %q, want unchanged", got)
	}
}

func TestTrimOverlap_NoMatch(t *testing.T) {
	in := "a completely unrelated continuation"
	if got := TrimOverlap("first capture window text", in); got != in {
		t.Fatalf("TrimOverlap = %q, want unchanged", got)
	}
}

func TestRollingBuffer_BoundsEntries(t *testing.T) {
	b := NewRollingBuffer(2, 0)
	b.Add("one")
	b.Add("two")
	b.Add("three")

	lines := b.Snapshot()
	if len(lines) != 2 {
		t.Fatalf("len = %d, want 2", len(lines))
	}
	if lines[0].Text != "two" || lines[1].Text != "three" {
		t.Fatalf("lines = %v", lines)
	}
}

func TestRollingBuffer_ExpiresByAge(t *testing.T) {
	b := NewRollingBuffer(10, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.Add("old line")
	now = now.Add(2 * time.Minute)
	b.Add("fresh line")

	lines := b.Snapshot()
	if len(lines) != 1 || lines[0].Text != "fresh line" {
		t.Fatalf("lines = %v, want only the fresh line", lines)
	}
}

func TestRollingBuffer_Last(t *testing.T) {
	b := NewRollingBuffer(4, 0)
	if _, ok := b.Last(); ok {
		t.Fatal("Last on empty buffer should report false")
	}
	b.Add("first")
	b.Add("second")
	line, ok := b.Last()
	if !ok || line.Text != "second" {
		t.Fatalf("Last = %q, %v", line.Text, ok)
	}
}

func TestCleanNoise_Whitespace(t *testing.T) {
	got := CleanNoise("   spaced    out   words   ")
	if strings.Contains(got, "  ") {
		t.Fatalf("got %q, want single-spaced", got)
	}
}
