package transcript

import (
	"sync"
	"time"
)

// Line is one rendered subtitle kept for transcript display.
type Line struct {
	Text       string
	RenderedAt time.Time
}

// RollingBuffer keeps the most recent rendered lines, bounded both by count
// and by age. Safe for concurrent use; the renderer appends while the status
// display snapshots.
type RollingBuffer struct {
	mu         sync.Mutex
	lines      []Line
	maxEntries int
	maxAge     time.Duration
	now        func() time.Time
}

// NewRollingBuffer creates a buffer holding at most maxEntries lines, each
// kept at most maxAge (0 disables the age bound).
func NewRollingBuffer(maxEntries int, maxAge time.Duration) *RollingBuffer {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &RollingBuffer{maxEntries: maxEntries, maxAge: maxAge, now: time.Now}
}

// Add appends a rendered line, evicting the oldest when full.
func (b *RollingBuffer) Add(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, Line{Text: text, RenderedAt: b.now()})
	if len(b.lines) > b.maxEntries {
		b.lines = b.lines[len(b.lines)-b.maxEntries:]
	}
}

// Snapshot returns the current lines oldest-first, dropping expired entries.
func (b *RollingBuffer) Snapshot() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()
	out := make([]Line, len(b.lines))
	copy(out, b.lines)
	return out
}

// Last returns the newest line, if any.
func (b *RollingBuffer) Last() (Line, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()
	if len(b.lines) == 0 {
		return Line{}, false
	}
	return b.lines[len(b.lines)-1], true
}

// Reset drops all lines. Called on session start.
func (b *RollingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}

func (b *RollingBuffer) prune() {
	if b.maxAge <= 0 {
		return
	}
	cutoff := b.now().Add(-b.maxAge)
	for len(b.lines) > 0 && b.lines[0].RenderedAt.Before(cutoff) {
		b.lines = b.lines[1:]
	}
}
