package pipeline

import (
	"strings"
	"time"

	"github.com/alonsorgl28/teams-translator/internal/transcript"
)

// SchedulerConfig tunes when accumulated translation output becomes a
// subtitle line.
type SchedulerConfig struct {
	// MinWords is the word floor for sentence-complete emission.
	MinWords int
	// MergeMaxWords is the hard ceiling; a pending fragment this long is
	// emitted even mid-sentence.
	MergeMaxWords int
	// MergeFlush is the wait ceiling; a pending fragment older than this is
	// emitted if it has at least MinWordsOnAgeFlush words.
	MergeFlush time.Duration
	// MinWordsOnAgeFlush is the reduced floor applied at the wait ceiling.
	MinWordsOnAgeFlush int
}

// Scheduler accumulates translated segments into a pending fragment and
// decides when the fragment reads well enough to show. Short fragments wait
// for a sentence boundary; long or old fragments are flushed so subtitles
// never stall behind an unfinished sentence.
//
// Scheduler is not safe for concurrent use; the emit worker owns it.
type Scheduler struct {
	cfg SchedulerConfig
	now func() time.Time

	pending         []string
	pendingSince    time.Time
	firstCapturedAt time.Time

	// graceUsed marks that a fragment below the word floor has already been
	// held one cycle past its wait ceiling; the next poll emits it as is.
	graceUsed  bool
	emittedAny bool
}

// NewScheduler creates a scheduler with the given policy. Zero fields take
// conservative defaults.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.MinWords < 1 {
		cfg.MinWords = 3
	}
	if cfg.MergeMaxWords < cfg.MinWords {
		cfg.MergeMaxWords = 24
	}
	if cfg.MergeFlush <= 0 {
		cfg.MergeFlush = 1200 * time.Millisecond
	}
	if cfg.MinWordsOnAgeFlush < 1 {
		cfg.MinWordsOnAgeFlush = 2
	}
	return &Scheduler{cfg: cfg, now: time.Now}
}

// Add merges a translated segment into the pending fragment, trimming the
// word overlap that consecutive capture windows produce.
func (s *Scheduler) Add(seg TranslatedSegment) {
	text := strings.TrimSpace(seg.TranslatedText)
	if text == "" {
		return
	}
	if len(s.pending) > 0 {
		text = transcript.TrimOverlap(strings.Join(s.pending, " "), text)
		if strings.TrimSpace(text) == "" {
			return
		}
	} else {
		s.pendingSince = s.now()
		s.firstCapturedAt = seg.CapturedAt
	}
	s.pending = append(s.pending, strings.Fields(text)...)
}

// Fragment is a pending fragment released by Poll.
type Fragment struct {
	Text            string
	FirstCapturedAt time.Time
}

// Poll releases the pending fragment when the emission policy says it is
// ready. Callers invoke Poll after each Add and once per scheduler tick.
func (s *Scheduler) Poll() (Fragment, bool) {
	if len(s.pending) == 0 {
		return Fragment{}, false
	}

	words := len(s.pending)
	age := s.now().Sub(s.pendingSince)

	minWords := s.cfg.MinWords
	if !s.emittedAny {
		// The first line of a session shows up fast, even if short.
		minWords = 1
	}

	switch {
	case words >= s.cfg.MergeMaxWords:
		return s.pop(), true
	case s.sentenceComplete() && words >= minWords:
		return s.pop(), true
	case age >= s.cfg.MergeFlush:
		if words >= s.cfg.MinWordsOnAgeFlush || s.graceUsed {
			return s.pop(), true
		}
		// Below the floor at the ceiling: hold exactly one extra cycle for
		// a late-arriving continuation, then emit regardless.
		s.graceUsed = true
	}
	return Fragment{}, false
}

// FlushRemaining releases whatever is pending, used at session stop.
func (s *Scheduler) FlushRemaining() (Fragment, bool) {
	if len(s.pending) == 0 {
		return Fragment{}, false
	}
	return s.pop(), true
}

// Reset clears all pending state. Called on session start.
func (s *Scheduler) Reset() {
	s.pending = nil
	s.graceUsed = false
	s.emittedAny = false
}

func (s *Scheduler) pop() Fragment {
	f := Fragment{
		Text:            strings.Join(s.pending, " "),
		FirstCapturedAt: s.firstCapturedAt,
	}
	s.pending = nil
	s.graceUsed = false
	s.emittedAny = true
	return f
}

// trailingConnectors are words a sentence cannot naturally end on, in either
// pipeline language. A fragment ending on one waits for its continuation.
var trailingConnectors = map[string]struct{}{
	"and": {}, "or": {}, "but": {}, "the": {}, "a": {}, "an": {}, "to": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "for": {}, "with": {}, "is": {},
	"are": {}, "was": {},
	"y": {}, "o": {}, "pero": {}, "el": {}, "la": {}, "los": {}, "las": {},
	"un": {}, "una": {}, "de": {}, "del": {}, "en": {}, "con": {}, "que": {},
	"para": {}, "por": {}, "es": {}, "son": {},
}

// sentenceComplete reports whether the pending fragment ends a sentence:
// terminal punctuation and not hanging on a connector word.
func (s *Scheduler) sentenceComplete() bool {
	last := s.pending[len(s.pending)-1]
	trimmed := strings.TrimRight(last, `"')]»`)
	if !strings.HasSuffix(trimmed, ".") && !strings.HasSuffix(trimmed, "!") &&
		!strings.HasSuffix(trimmed, "?") && !strings.HasSuffix(trimmed, "…") {
		return false
	}
	word := strings.ToLower(strings.TrimRight(trimmed, ".!?…"))
	_, connector := trailingConnectors[word]
	return !connector
}
