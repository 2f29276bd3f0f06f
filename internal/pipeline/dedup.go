package pipeline

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// DedupWindow suppresses near-identical subtitle lines. Overlapping capture
// windows make the transcription stage resurface the same sentence with
// small wording changes; comparing each candidate against the last few
// emitted lines catches those echoes.
type DedupWindow struct {
	size      int
	threshold float64
	recent    []string // normalized, oldest first
}

// NewDedupWindow creates a window remembering the last size emitted lines
// and rejecting candidates whose similarity to any of them reaches
// threshold (0..1).
func NewDedupWindow(size int, threshold float64) *DedupWindow {
	if size < 1 {
		size = 1
	}
	return &DedupWindow{size: size, threshold: threshold}
}

// IsDuplicate reports whether text is too similar to a recently emitted
// line. It does not advance the window; only Remember does, so suppressed
// candidates cannot push genuine history out of the window.
func (w *DedupWindow) IsDuplicate(text string) bool {
	norm := normalizeLine(text)
	if norm == "" {
		return true
	}
	for _, prev := range w.recent {
		if similarity(norm, prev) >= w.threshold {
			return true
		}
	}
	return false
}

// Remember records text as emitted, evicting the oldest entry when full.
func (w *DedupWindow) Remember(text string) {
	norm := normalizeLine(text)
	if norm == "" {
		return
	}
	w.recent = append(w.recent, norm)
	if len(w.recent) > w.size {
		w.recent = w.recent[len(w.recent)-w.size:]
	}
}

// Reset clears the window. Called on session start.
func (w *DedupWindow) Reset() {
	w.recent = nil
}

// normalizeLine lowercases, strips punctuation and collapses whitespace so
// the comparison sees wording, not formatting.
func normalizeLine(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// similarity is an edit-distance ratio in [0,1] over normalized lines.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	dist := matchr.Levenshtein(a, b)
	return 1 - float64(dist)/float64(longest)
}
