package security

import "time"

// CredentialKind distinguishes how a Principal was authenticated.
type CredentialKind string

const (
	CredentialAPIKey CredentialKind = "api_key"
	CredentialJWT    CredentialKind = "jwt"
)

// Principal is the authenticated identity behind a request. It is
// materialized fresh from credential material on every request and is
// never persisted across requests (spec §3).
type Principal struct {
	ID             string
	Role           Role
	CredentialKind CredentialKind
	ExpiresAt      *time.Time
	AllowedIPs     []string
}

// Credential is the raw material presented by a peer: exactly one of
// APIKey or JWT is expected to be set.
type Credential struct {
	APIKey   string
	JWT      string
	SourceIP string
}
