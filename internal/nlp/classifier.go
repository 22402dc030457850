package nlp

import "sort"

// classify inspects the tokens of a single clause and returns the best
// matching Action plus a base confidence and, when the match is weak, a
// ranked list of runner-up candidates.
func classify(tokens []Token, lex *Lexicon) (Action, float64, []string) {
	scores := map[Action]float64{}

	for _, tok := range tokens {
		if tok.POS != "verb" {
			continue
		}
		switch tok.Lemma {
		case "connect":
			scores[ActionConnect] += 1
		case "disconnect":
			scores[ActionDisconnect] += 1
		case "takeoff":
			scores[ActionTakeoff] += 1
		case "land":
			scores[ActionLand] += 1
		case "move":
			scores[ActionMove] += 1
		case "rotate":
			scores[ActionRotate] += 1
		case "altitude":
			scores[ActionAltitudeSet] += 1
		case "photo":
			scores[ActionPhoto] += 1
		case "video_start":
			scores[ActionVideoStart] += 1
		case "video_stop":
			scores[ActionVideoStop] += 1
		case "status":
			scores[ActionStatusQuery] += 1
		case "emergency_stop":
			scores[ActionEmergencyStop] += 2 // emergency always wins ties
		case "help":
			scores[ActionHelp] += 1
		}
	}

	// A bare direction word with no verb still implies "move"; a bare
	// rotation word with no verb implies "rotate".
	hasDirection := false
	hasRotation := false
	hasDegreeUnit := false
	for _, tok := range tokens {
		switch tok.POS {
		case "direction":
			hasDirection = true
		case "rotation_direction":
			hasRotation = true
		}
		if tok.POS == "unit" && tok.Lemma == "degree" {
			hasDegreeUnit = true
		}
	}
	if hasDirection {
		scores[ActionMove] += 0.5
	}
	if hasRotation || hasDegreeUnit {
		scores[ActionRotate] += 0.5
	}

	if len(scores) == 0 {
		return ActionUnknown, 0, nil
	}

	best := ActionUnknown
	bestScore := -1.0
	for action, score := range scores {
		if score > bestScore || (score == bestScore && action < best) {
			best, bestScore = action, score
		}
	}

	total := 0.0
	for _, score := range scores {
		total += score
	}
	confidence := bestScore / total
	if len(tokens) == 0 {
		confidence = 0
	}

	var candidates []string
	if len(scores) > 1 {
		for action := range scores {
			if action != best {
				candidates = append(candidates, string(action))
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			si, sj := scores[Action(candidates[i])], scores[Action(candidates[j])]
			if si != sj {
				return si > sj
			}
			return candidates[i] < candidates[j]
		})
	}
	return best, confidence, candidates
}
