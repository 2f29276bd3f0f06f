package translate

import (
	"regexp"
	"strings"
)

// numericToken matches a number with its optional engineering unit. Units
// must travel with their value: "400 kV" translated as "400" loses the
// sentence's meaning in a grid-operations meeting.
var numericToken = regexp.MustCompile(
	`\d+(?:[.,]\d+)?\s*(?:kV/mm|kV|kA|kW|MVA|MW|GW|Hz|mm2|mm²|ms|°C|%|V|A|W)?`)

// NumericTokens extracts the numeric tokens of text in order of appearance.
func NumericTokens(text string) []string {
	return numericToken.FindAllString(text, -1)
}

// MissingNumbers returns the numeric values present in source but absent
// from translated. Comparison is on the bare normalized number, so unit
// spacing and decimal-separator conventions ("1.5" vs "1,5") do not count
// as loss.
func MissingNumbers(source, translated string) []string {
	have := make(map[string]int)
	for _, tok := range NumericTokens(translated) {
		have[normalizeNumber(tok)]++
	}

	var missing []string
	for _, tok := range NumericTokens(source) {
		key := normalizeNumber(tok)
		if have[key] > 0 {
			have[key]--
			continue
		}
		missing = append(missing, strings.TrimSpace(tok))
	}
	return missing
}

var bareNumber = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

func normalizeNumber(tok string) string {
	num := bareNumber.FindString(tok)
	return strings.ReplaceAll(num, ",", ".")
}

// refusalMarkers are the openings of a model declining to translate instead
// of translating. They count as call failures so the executor retries.
var refusalMarkers = []string{
	"i can't", "i cannot", "i'm sorry", "i am sorry", "as an ai",
	"lo siento", "no puedo",
}

// IsRefusal reports whether text looks like a refusal rather than a
// translation.
func IsRefusal(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, m := range refusalMarkers {
		if strings.HasPrefix(t, m) {
			return true
		}
	}
	return false
}

// spanishMarkers are high-frequency Spanish function words. Meeting audio
// occasionally switches to the target language; translating Spanish into
// Spanish mangles it, so sources that already read as Spanish pass through.
var spanishMarkers = map[string]struct{}{
	"el": {}, "la": {}, "los": {}, "las": {}, "un": {}, "una": {},
	"de": {}, "del": {}, "que": {}, "en": {}, "es": {}, "son": {},
	"por": {}, "para": {}, "con": {}, "se": {}, "como": {}, "pero": {},
	"está": {}, "esta": {}, "tiene": {}, "hay": {}, "más": {}, "también": {},
}

const spanishMarkerThreshold = 4

// LooksSpanish reports whether text already reads as Spanish.
func LooksSpanish(text string) bool {
	hits := 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?¿¡\"'()")
		if _, ok := spanishMarkers[word]; ok {
			hits++
			if hits >= spanishMarkerThreshold {
				return true
			}
		}
	}
	return false
}
