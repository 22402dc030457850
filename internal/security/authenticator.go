package security

import (
	"errors"
	"time"

	"github.com/skywire-labs/drone-nlp-gateway/internal/apperrors"
)

// Authenticator is the C5 security core's single entry point: it
// dual-authenticates API-key and JWT credentials, enforces lockout before
// any credential check, and doubles as the per-Principal rate limiter
// consulted by the executor before each backend command.
type Authenticator struct {
	apiKeys *apiKeyStore
	jwt     *jwtVerifier
	lockout *lockoutTracker
	limiter *rateLimiter
	ipFilt  *IPFilter
}

// NewAuthenticator builds the security core from its configured parts.
func NewAuthenticator(jwtSecret []byte, lockoutCfg LockoutConfig, rateCfg RateLimitConfig, ipFilt *IPFilter) *Authenticator {
	return &Authenticator{
		apiKeys: newAPIKeyStore(),
		jwt:     newJWTVerifier(jwtSecret),
		lockout: newLockoutTracker(lockoutCfg),
		limiter: newRateLimiter(rateCfg),
		ipFilt:  ipFilt,
	}
}

// RegisterAPIKey adds a static API key credential to the in-memory table.
func (a *Authenticator) RegisterAPIKey(key, principalID string, role Role, expiresAt *time.Time, allowedIPs []string) error {
	return a.apiKeys.Add(key, principalID, role, expiresAt, allowedIPs)
}

// Authenticate resolves a Credential into a Principal, enforcing lockout
// first and recording failures/successes against the configured scope.
func (a *Authenticator) Authenticate(cred Credential) (Principal, error) {
	if a.ipFilt != nil && !a.ipFilt.Permit(cred.SourceIP) {
		return Principal{}, apperrors.New(apperrors.KindUnauthorized, "source ip blocked")
	}

	credentialID := cred.APIKey
	if credentialID == "" {
		credentialID = cred.JWT
	}

	if a.lockout.Locked(credentialID, cred.SourceIP) {
		return Principal{}, apperrors.New(apperrors.KindLockedOut, "source is locked out after repeated failed authentications")
	}

	var principal Principal
	var err error
	switch {
	case cred.APIKey != "":
		principal, err = a.apiKeys.verify(cred.APIKey, cred.SourceIP)
	case cred.JWT != "":
		principal, err = a.jwt.verify(cred.JWT)
	default:
		return Principal{}, apperrors.New(apperrors.KindUnauthorized, "no credential supplied")
	}

	if err != nil {
		if errors.Is(err, ErrExpiredCredential) {
			// Expired credentials fail the request but do not count toward lockout.
			return Principal{}, apperrors.New(apperrors.KindUnauthorized, "credential expired")
		}
		a.lockout.RecordFailure(credentialID, cred.SourceIP, time.Now())
		if a.lockout.Locked(credentialID, cred.SourceIP) {
			return Principal{}, apperrors.New(apperrors.KindLockedOut, "source locked out after this failure")
		}
		return Principal{}, apperrors.New(apperrors.KindUnauthorized, "invalid credential")
	}

	a.lockout.RecordSuccess(credentialID, cred.SourceIP)
	return principal, nil
}

// Allow consumes one rate-limit token for the principal; false indicates
// the request must be denied before any backend call (spec invariant 5).
func (a *Authenticator) Allow(p Principal) (bool, time.Duration) {
	return a.limiter.Allow(p.ID)
}
