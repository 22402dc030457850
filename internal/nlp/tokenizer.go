package nlp

import (
	"regexp"
	"sort"
	"strings"
)

// Token is a (surface, pos, lemma) triple produced by tokenization
// (spec §4.2 pt 2).
type Token struct {
	Surface string
	Lemma   string
	POS     string
}

// Tokenizer segments a normalized clause into tokens. It is pluggable —
// a statistical implementation could satisfy the same interface — but a
// deterministic rule-based fallback must always be available.
type Tokenizer interface {
	Tokenize(clause string) []Token
}

// ruleTokenizer is the deterministic fallback: it scans for every known
// surface form in the lexicon (verbs, directions, units, rotation words)
// plus bare numbers and drone-id-shaped identifiers, left to right.
type ruleTokenizer struct {
	lex     *Lexicon
	pattern *regexp.Regexp
	lemmas  map[string]Token
}

// NewRuleTokenizer builds the fallback tokenizer from lex.
func NewRuleTokenizer(lex *Lexicon) Tokenizer {
	type entry struct {
		surface string
		lemma   string
		pos     string
	}
	var entries []entry
	add := func(list []string, lemma, pos string) {
		for _, s := range list {
			entries = append(entries, entry{s, lemma, pos})
		}
	}
	add(lex.ConnectVerbs, "connect", "verb")
	add(lex.DisconnectVerbs, "disconnect", "verb")
	add(lex.TakeoffVerbs, "takeoff", "verb")
	add(lex.LandVerbs, "land", "verb")
	add(lex.MoveVerbs, "move", "verb")
	add(lex.RotateVerbs, "rotate", "verb")
	add(lex.AltitudeVerbs, "altitude", "verb")
	add(lex.PhotoVerbs, "photo", "verb")
	add(lex.VideoStartVerbs, "video_start", "verb")
	add(lex.VideoStopVerbs, "video_stop", "verb")
	add(lex.StatusVerbs, "status", "verb")
	add(lex.EmergencyVerbs, "emergency_stop", "verb")
	add(lex.HelpVerbs, "help", "verb")
	add(lex.CentimeterUnits, "centimeter", "unit")
	add(lex.MeterUnits, "meter", "unit")
	add(lex.DegreeUnits, "degree", "unit")

	for surface, canon := range lex.Directions {
		entries = append(entries, entry{surface, canon, "direction"})
	}
	for surface, canon := range lex.RotationDirs {
		entries = append(entries, entry{surface, canon, "rotation_direction"})
	}
	for _, prefix := range lex.DroneIDPrefixes {
		entries = append(entries, entry{prefix, "drone_id_prefix", "marker"})
	}

	sort.Slice(entries, func(i, j int) bool { return len(entries[i].surface) > len(entries[j].surface) })

	lemmas := make(map[string]Token, len(entries))
	parts := make([]string, 0, len(entries)+2)
	for _, e := range entries {
		if e.surface == "" {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(e.surface))
		lemmas[e.surface] = Token{Surface: e.surface, Lemma: e.lemma, POS: e.pos}
	}
	parts = append(parts, `\d+`, `[A-Za-z][A-Za-z0-9_\-]*`)

	pattern := regexp.MustCompile(strings.Join(parts, "|"))
	return &ruleTokenizer{lex: lex, pattern: pattern, lemmas: lemmas}
}

func (t *ruleTokenizer) Tokenize(clause string) []Token {
	matches := t.pattern.FindAllString(clause, -1)
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		if tok, ok := t.lemmas[m]; ok {
			tokens = append(tokens, tok)
			continue
		}
		if isDigits(m) {
			tokens = append(tokens, Token{Surface: m, Lemma: m, POS: "number"})
			continue
		}
		tokens = append(tokens, Token{Surface: m, Lemma: m, POS: "ident"})
	}
	return tokens
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
