package nlp

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minDistanceCm = 20
	maxDistanceCm = 500
	minAngleDeg   = 1
	maxAngleDeg   = 360
	minAltitudeCm = 20
	maxAltitudeCm = 300
)

var droneIDPattern = regexp.MustCompile(`[A-Za-z0-9_\-]+`)
var numeralPattern = regexp.MustCompile(`\d+`)

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// extractDirection returns the canonical direction keyword present in
// clause, if any. When several surface forms match, the longest one wins
// (ties go to the lexically smaller form).
func extractDirection(clause string, lex *Lexicon) (string, bool) {
	best := ""
	for surface := range lex.Directions {
		if containsRunes(clause, surface) && (len(surface) > len(best) || (len(surface) == len(best) && surface < best)) {
			best = surface
		}
	}
	if best == "" {
		return "", false
	}
	return lex.Directions[best], true
}

// extractRotationDirection returns the canonical rotation direction. The
// longest matching surface form wins, so "反時計回り" is not read as the
// "時計回り" it contains.
func extractRotationDirection(clause string, lex *Lexicon) (string, bool) {
	best := ""
	for surface := range lex.RotationDirs {
		if containsRunes(clause, surface) && (len(surface) > len(best) || (len(surface) == len(best) && surface < best)) {
			best = surface
		}
	}
	if best == "" {
		return "", false
	}
	return lex.RotationDirs[best], true
}

// extractDistanceCm finds a number immediately associated with a
// centimeter or meter unit word, converts meters to centimeters, and
// clamps to [20, 500] (spec §4.2 pt 4).
func extractDistanceCm(clause string, lex *Lexicon) (*int, bool) {
	if n, ok := numberBeforeAnyUnit(clause, lex.CentimeterUnits); ok {
		v := clampInt(n, minDistanceCm, maxDistanceCm)
		return &v, true
	}
	if n, ok := numberBeforeAnyUnit(clause, lex.MeterUnits); ok {
		v := clampInt(n*100, minDistanceCm, maxDistanceCm)
		return &v, true
	}
	return nil, false
}

// extractAngleDeg finds a number associated with a degree unit word and
// clamps it to [1, 360].
func extractAngleDeg(clause string, lex *Lexicon) (*int, bool) {
	n, ok := numberBeforeAnyUnit(clause, lex.DegreeUnits)
	if !ok {
		return nil, false
	}
	v := clampInt(n, minAngleDeg, maxAngleDeg)
	return &v, true
}

// extractAltitudeCm finds a number associated with a distance unit in the
// context of an altitude_set clause and clamps it to [20, 300].
func extractAltitudeCm(clause string, lex *Lexicon) (*int, bool) {
	if n, ok := numberBeforeAnyUnit(clause, lex.CentimeterUnits); ok {
		v := clampInt(n, minAltitudeCm, maxAltitudeCm)
		return &v, true
	}
	if n, ok := numberBeforeAnyUnit(clause, lex.MeterUnits); ok {
		v := clampInt(n*100, minAltitudeCm, maxAltitudeCm)
		return &v, true
	}
	return nil, false
}

// extractDroneID finds an explicit drone id reference: the lexicon's
// drone-id prefix immediately followed by an identifier. A bare
// identifier-shaped token without the prefix is not taken as a drone id.
func extractDroneID(clause string, lex *Lexicon) (string, bool) {
	for _, prefix := range lex.DroneIDPrefixes {
		idx := indexRunes(clause, prefix)
		if idx < 0 {
			continue
		}
		rest := clause[idx+len(prefix):]
		if loc := droneIDPattern.FindStringIndex(rest); loc != nil && loc[0] == 0 {
			return rest[loc[0]:loc[1]], true
		}
	}
	return "", false
}

// numberBeforeAnyUnit scans for the first numeral run in clause and
// confirms one of the given unit words appears within a short trailing
// window, returning the numeral's integer value.
func numberBeforeAnyUnit(clause string, units []string) (int, bool) {
	numLoc := numeralPattern.FindStringIndex(clause)
	if numLoc == nil {
		return 0, false
	}
	tail := clause[numLoc[1]:]
	window := tail
	if len(window) > 12 {
		window = window[:12]
	}
	for _, u := range units {
		if containsRunes(window, u) {
			n, err := strconv.Atoi(clause[numLoc[0]:numLoc[1]])
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}

func containsRunes(haystack, needle string) bool {
	return indexRunes(haystack, needle) >= 0
}

func indexRunes(haystack, needle string) int {
	if needle == "" {
		return -1
	}
	return strings.Index(haystack, needle)
}
