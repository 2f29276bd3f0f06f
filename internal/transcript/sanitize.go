// Package transcript provides text hygiene for raw transcription output:
// watermark and URL scrubbing, hallucination detection, overlap trimming
// between consecutive capture windows, and a rolling buffer of rendered
// lines.
package transcript

import (
	"regexp"
	"strings"
	"unicode"
)

// Speech-to-text models trained on subtitled video hallucinate credits and
// watermarks during silence or noise. These show up verbatim often enough
// to scrub by pattern.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://\S+`),
	regexp.MustCompile(`(?i)\bwww\.\S+`),
	regexp.MustCompile(`(?i)subt[ií]tulos\s+(realizados\s+por|por)\s+.{0,40}`),
	regexp.MustCompile(`(?i)subtitles?\s+by\s+.{0,40}`),
	regexp.MustCompile(`(?i)\bamara\.org\b.{0,20}`),
	regexp.MustCompile(`(?i)\bengvid\b.{0,20}`),
	regexp.MustCompile(`(?i)thanks?\s+for\s+watching.{0,20}`),
	regexp.MustCompile(`(?i)gracias\s+por\s+ver.{0,20}`),
	regexp.MustCompile(`(?i)suscr[ií]bete.{0,30}`),
	regexp.MustCompile(`(?i)\[\s*(music|música|aplausos|applause)\s*\]`),
}

const maxTokenRun = 3

// CleanNoise strips watermark phrases and URLs and collapses any token
// repeated more than three times in a row.
func CleanNoise(text string) string {
	for _, re := range noisePatterns {
		text = re.ReplaceAllString(text, " ")
	}

	tokens := strings.Fields(text)
	out := tokens[:0]
	run := 0
	for i, tok := range tokens {
		if i > 0 && strings.EqualFold(tok, tokens[i-1]) {
			run++
		} else {
			run = 1
		}
		if run <= maxTokenRun {
			out = append(out, tok)
		}
	}
	return strings.Join(out, " ")
}

// LooksGibberish reports whether text has the statistical shape of a
// hallucinated transcription: a long word stuttered three times in a row,
// heavy token repetition, or a collapsed vocabulary.
func LooksGibberish(text string) bool {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return false
	}
	for i := 2; i < len(tokens); i++ {
		if len(tokens[i]) >= 4 && tokens[i] == tokens[i-1] && tokens[i] == tokens[i-2] {
			return true
		}
	}
	if len(tokens) < 6 {
		return false
	}

	unique := make(map[string]struct{}, len(tokens))
	repeats := 0
	for i, tok := range tokens {
		unique[tok] = struct{}{}
		if i > 0 && tok == tokens[i-1] {
			repeats++
		}
	}
	repeatRatio := float64(repeats) / float64(len(tokens))
	uniqueRatio := float64(len(unique)) / float64(len(tokens))
	return repeatRatio >= 0.45 || uniqueRatio <= 0.30
}

const (
	maxOverlapTokens = 12
	minOverlapTokens = 3
)

// TrimOverlap removes the leading tokens of incoming that repeat the tail of
// previous. Consecutive capture windows overlap on purpose, so the start of
// each transcription tends to re-say the end of the one before it. Matches
// are sought longest-first, down to a three-token minimum; shorter echoes
// are left alone since they may be legitimate repetition.
func TrimOverlap(previous, incoming string) string {
	prevTok := strings.Fields(previous)
	inTok := strings.Fields(incoming)
	limit := min(maxOverlapTokens, min(len(prevTok), len(inTok)))

	for n := limit; n >= minOverlapTokens; n-- {
		if tokensEqualFold(prevTok[len(prevTok)-n:], inTok[:n]) {
			return strings.Join(inTok[n:], " ")
		}
	}
	return incoming
}

func tokensEqualFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if foldToken(a[i]) != foldToken(b[i]) {
			return false
		}
	}
	return true
}

// foldToken lowercases and strips edge punctuation so "grid." matches "Grid".
func foldToken(s string) string {
	return strings.ToLower(strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}))
}
