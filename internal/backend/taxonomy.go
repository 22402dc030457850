package backend

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/skywire-labs/drone-nlp-gateway/internal/apperrors"
)

// classifyStatus maps an HTTP status code onto the gateway's error
// taxonomy per spec §6's backend status table. A nil return means success
// (200/201).
func classifyStatus(status int, retryAfterHeader string) *apperrors.Error {
	switch {
	case status == 200 || status == 201:
		return nil
	case status == 400:
		return apperrors.New(apperrors.KindInvalidArgument, "backend rejected the argument")
	case status == 401 || status == 403:
		return apperrors.New(apperrors.KindBackendAuthFailed, "backend authentication failed")
	case status == 404:
		return apperrors.New(apperrors.KindNotFound, "resource not found on backend")
	case status == 409:
		return apperrors.New(apperrors.KindConflict, "backend reports a conflicting state")
	case status == 429:
		e := apperrors.New(apperrors.KindRateLimited, "backend rate limit exceeded")
		if ms := parseRetryAfterMs(retryAfterHeader); ms > 0 {
			e.WithRetry(ms)
		} else {
			e.Retryable = true
		}
		return e
	case status >= 500:
		e := apperrors.New(apperrors.KindBackendUnavailable, "backend server error")
		e.Retryable = true
		return e
	default:
		e := apperrors.New(apperrors.KindInternalError, "unexpected backend status")
		return e
	}
}

// classifyTransportError maps a network-layer failure (connection refused,
// DNS failure, deadline exceeded) onto the taxonomy.
func classifyTransportError(err error) *apperrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.New(apperrors.KindTimedOut, "backend call exceeded its deadline")
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.New(apperrors.KindCancelled, "backend call was cancelled")
	}
	e := apperrors.New(apperrors.KindBackendUnavailable, err.Error())
	e.Retryable = true
	return e
}

// parseRetryAfterMs parses a Retry-After header (seconds form) into
// milliseconds; 0 if absent or unparsable.
func parseRetryAfterMs(header string) int64 {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}
	return (time.Duration(secs) * time.Second).Milliseconds()
}
