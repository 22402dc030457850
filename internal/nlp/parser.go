package nlp

import "strings"

// Parse is the pipeline's sole entry point: normalize -> split -> tokenize
// -> classify -> extract -> score, for every clause in text. It is pure
// and deterministic in (text, defaultDroneID, cfg).
func Parse(text string, defaultDroneID string, cfg Config) ([]ParsedIntent, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Kind: "empty_input", Message: "input text is empty"}
	}

	lex := cfg.Lexicon
	if lex == nil {
		lex = DefaultLexicon()
	}

	normalized, err := normalize(text, lex)
	if err != nil {
		return nil, err
	}

	clauses := splitClauses(normalized, lex)
	tokenizer := NewRuleTokenizer(lex)

	sharedDroneID := defaultDroneID
	for _, c := range clauses {
		if id, ok := extractDroneID(c, lex); ok {
			sharedDroneID = id
			break
		}
	}

	intents := make([]ParsedIntent, 0, len(clauses))
	for _, clause := range clauses {
		tokens := tokenizer.Tokenize(clause)
		action, base, candidates := classify(tokens, lex)

		params := extractParameters(clause, action, lex)
		if params.TargetDroneID == "" {
			params.TargetDroneID = sharedDroneID
		}

		confidence := adjustConfidence(action, params, base)

		if confidence < cfg.ConfidenceThreshold {
			return nil, &ParseError{
				Kind:       "low_confidence",
				Message:    "could not classify the command with sufficient confidence",
				Confidence: confidence,
				Candidates: candidates,
			}
		}

		surfaces := make([]string, 0, len(tokens))
		for _, t := range tokens {
			surfaces = append(surfaces, t.Surface)
		}

		intents = append(intents, ParsedIntent{
			Action:       action,
			Parameters:   params,
			Confidence:   confidence,
			RawText:      clause,
			SourceTokens: surfaces,
		})
	}

	return intents, nil
}

// extractParameters runs every slot-filler relevant to action against the
// clause text. Filling happens independently of classification so a
// parameter present in text that classification missed is not lost.
func extractParameters(clause string, action Action, lex *Lexicon) Parameters {
	var p Parameters

	if id, ok := extractDroneID(clause, lex); ok {
		p.TargetDroneID = id
	}

	switch action {
	case ActionMove:
		if dir, ok := extractDirection(clause, lex); ok {
			p.Direction = dir
		}
		if d, ok := extractDistanceCm(clause, lex); ok {
			p.DistanceCm = d
		}
	case ActionRotate:
		if rd, ok := extractRotationDirection(clause, lex); ok {
			p.RotationDirection = rd
		}
		if a, ok := extractAngleDeg(clause, lex); ok {
			p.AngleDeg = a
		}
	case ActionAltitudeSet:
		if alt, ok := extractAltitudeCm(clause, lex); ok {
			p.AltitudeCm = alt
		}
	}

	return p
}
