package nlp

import "strings"

// splitClauses breaks normalized text on the lexicon's conjunction
// markers ("て", "、", ",", " and ") into an ordered sequence of clauses
// sharing one drone id (spec §4.2 pt 6). Empty fragments are dropped.
func splitClauses(text string, lex *Lexicon) []string {
	fragments := []string{text}
	for _, marker := range lex.ConjunctionMarkers {
		var next []string
		for _, f := range fragments {
			next = append(next, strings.Split(f, marker)...)
		}
		fragments = next
	}

	clauses := make([]string, 0, len(fragments))
	for _, f := range fragments {
		c := stripConjunctionNoise(f)
		if c != "" {
			clauses = append(clauses, c)
		}
	}
	if len(clauses) == 0 {
		return []string{stripConjunctionNoise(text)}
	}
	return clauses
}
