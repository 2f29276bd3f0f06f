package pipeline

import "time"

// StalenessFilter decides whether queued work is still worth processing.
// Each stage checks items at dequeue time so that backlog accumulated during
// a stall is discarded instead of surfacing as subtitles for speech that is
// long gone.
type StalenessFilter struct {
	// Threshold is the maximum age of an item measured from capture. The
	// boundary is inclusive: an item aged exactly Threshold is still fresh.
	Threshold time.Duration

	// Now is the clock, overridable in tests. Nil means time.Now.
	Now func() time.Time
}

// Fresh reports whether an item captured at capturedAt should still be
// processed.
func (f StalenessFilter) Fresh(capturedAt time.Time) bool {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return now().Sub(capturedAt) <= f.Threshold
}

// Relaxed returns a filter with the threshold widened by the given factor.
// The emission stage runs with a relaxed threshold so segments that already
// paid for transcription and translation are not discarded at the last door.
func (f StalenessFilter) Relaxed(factor float64) StalenessFilter {
	if factor <= 0 {
		return f
	}
	return StalenessFilter{
		Threshold: time.Duration(float64(f.Threshold) * factor),
		Now:       f.Now,
	}
}
