package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalize applies NFKC (which folds full-width digits/letters to their
// ASCII equivalents), then rewrites contiguous kanji-numeral runs to
// decimal digit strings using the configured lexicon, and rejects
// control characters (spec §4.2 pt 1).
func normalize(text string, lex *Lexicon) (string, error) {
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != ' ' {
			return "", &ParseError{Kind: "invalid_input", Message: "control characters are not permitted"}
		}
	}

	folded := norm.NFKC.String(text)
	return convertKanjiNumerals(folded, lex), nil
}

// convertKanjiNumerals replaces every maximal run of the lexicon's
// kanji-numeral characters (KanjiDigits and KanjiUnits) with its decimal
// digit-string equivalent.
func convertKanjiNumerals(text string, lex *Lexicon) string {
	var class strings.Builder
	for r := range lex.KanjiDigits {
		class.WriteString(`\x{` + strconv.FormatInt(int64(r), 16) + `}`)
	}
	for r := range lex.KanjiUnits {
		class.WriteString(`\x{` + strconv.FormatInt(int64(r), 16) + `}`)
	}
	if class.Len() == 0 {
		return text
	}
	kanjiNumeralRun := regexp.MustCompile("[" + class.String() + "]+")
	return kanjiNumeralRun.ReplaceAllStringFunc(text, func(run string) string {
		value, ok := parseKanjiNumber(run, lex)
		if !ok {
			return run
		}
		return strconv.Itoa(value)
	})
}

// parseKanjiNumber implements the standard classical-kanji-numeral
// algorithm: digits accumulate into a pending value that a following unit
// character (十/百/千) multiplies into the running total.
func parseKanjiNumber(s string, lex *Lexicon) (int, bool) {
	total, pending := 0, 0
	matchedAny := false

	for _, r := range s {
		if unit, ok := lex.KanjiUnits[r]; ok {
			if pending == 0 {
				pending = 1
			}
			total += pending * unit
			pending = 0
			matchedAny = true
			continue
		}
		if digit, ok := lex.KanjiDigits[r]; ok {
			pending = pending*10 + digit
			matchedAny = true
			continue
		}
		return 0, false
	}
	total += pending
	return total, matchedAny
}

// stripConjunctionNoise trims leading/trailing punctuation left over
// after clause splitting.
func stripConjunctionNoise(s string) string {
	return strings.Trim(s, " 、,　")
}
