package gateway

import (
	"github.com/skywire-labs/drone-nlp-gateway/internal/apperrors"
	"github.com/skywire-labs/drone-nlp-gateway/internal/nlp"
)

// toAppError converts a pipeline-local *nlp.ParseError into the gateway's
// taxonomy so it can cross the JSON-RPC boundary uniformly with every
// other failure.
func toAppError(err error) error {
	pe, ok := err.(*nlp.ParseError)
	if !ok {
		return err
	}
	var kind apperrors.Kind
	switch pe.Kind {
	case "empty_input":
		kind = apperrors.KindEmptyInput
	case "low_confidence":
		kind = apperrors.KindLowConfidence
	default:
		kind = apperrors.KindInvalidParams
	}
	e := apperrors.New(kind, pe.Message)
	if len(pe.Candidates) > 0 {
		e.WithCandidates(pe.Candidates)
	}
	return e
}
