package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(t *testing.T, maxFailed int) *Authenticator {
	t.Helper()
	return NewAuthenticator(
		[]byte("0123456789abcdef0123456789abcdef"),
		LockoutConfig{MaxFailedAttempts: maxFailed, Window: time.Minute, Duration: time.Minute, Scope: LockoutScopeCredential},
		RateLimitConfig{RequestsPerMinute: 6000, Burst: 6000},
		nil,
	)
}

func TestAuthenticate_UnknownAPIKeyRejected(t *testing.T) {
	auth := newTestAuthenticator(t, 5)
	_, err := auth.Authenticate(Credential{APIKey: "nonexistent-key-at-least-24-bytes"})
	require.Error(t, err)
}

func TestAuthenticate_ValidAPIKeySucceeds(t *testing.T) {
	auth := newTestAuthenticator(t, 5)
	key := "a-valid-api-key-that-is-24b"
	require.NoError(t, auth.RegisterAPIKey(key, "alice", RoleOperator, nil, nil))

	p, err := auth.Authenticate(Credential{APIKey: key})
	require.NoError(t, err)
	assert.Equal(t, "alice", p.ID)
	assert.Equal(t, RoleOperator, p.Role)
	assert.Equal(t, CredentialAPIKey, p.CredentialKind)
}

func TestAuthenticate_ShortAPIKeyRejectedAtRegistration(t *testing.T) {
	auth := newTestAuthenticator(t, 5)
	err := auth.RegisterAPIKey("short", "bob", RoleOperator, nil, nil)
	require.Error(t, err)
}

func TestAuthenticate_ExpiredAPIKeyDoesNotIncrementLockout(t *testing.T) {
	auth := newTestAuthenticator(t, 2)
	past := time.Now().Add(-time.Hour)
	key := "an-expired-api-key-24-bytes"
	require.NoError(t, auth.RegisterAPIKey(key, "carol", RoleOperator, &past, nil))

	for i := 0; i < 5; i++ {
		_, err := auth.Authenticate(Credential{APIKey: key})
		require.Error(t, err)
	}

	assert.False(t, auth.lockout.Locked(key, ""), "expired credential must never trigger lockout")
}

func TestAuthenticate_NthBadCredentialLocksOut(t *testing.T) {
	auth := newTestAuthenticator(t, 3)
	key := "locked-out-key-at-least-24b"

	for i := 0; i < 2; i++ {
		_, err := auth.Authenticate(Credential{APIKey: key})
		require.Error(t, err)
	}
	_, err := auth.Authenticate(Credential{APIKey: key})
	require.Error(t, err)
	assert.True(t, auth.lockout.Locked(key, ""))

	// Even a credential that would otherwise succeed is rejected while locked out.
	require.NoError(t, auth.RegisterAPIKey(key, "dave", RoleOperator, nil, nil))
	_, err = auth.Authenticate(Credential{APIKey: key})
	require.Error(t, err)
}

func TestLockoutTracker_SuccessResetsFailureCount(t *testing.T) {
	tr := newLockoutTracker(LockoutConfig{MaxFailedAttempts: 3, Window: time.Minute, Duration: time.Minute})
	now := time.Now()

	tr.RecordFailure("cred-1", "", now)
	tr.RecordFailure("cred-1", "", now)
	tr.RecordSuccess("cred-1", "")

	tr.RecordFailure("cred-1", "", now)
	tr.RecordFailure("cred-1", "", now)
	assert.False(t, tr.Locked("cred-1", ""), "a success in between must reset the failure count")
}

func TestAuthenticate_JWTUnknownRoleRejected(t *testing.T) {
	auth := newTestAuthenticator(t, 5)
	secret := []byte("0123456789abcdef0123456789abcdef")
	token, err := IssueToken(secret, "mallory", "superuser", time.Hour)
	require.NoError(t, err)

	_, err = auth.Authenticate(Credential{JWT: token})
	require.Error(t, err)
}

func TestAuthenticate_JWTExpiredDoesNotLockOut(t *testing.T) {
	auth := newTestAuthenticator(t, 1)
	secret := []byte("0123456789abcdef0123456789abcdef")
	token, err := IssueToken(secret, "frank", "operator", -time.Minute)
	require.NoError(t, err)

	_, err = auth.Authenticate(Credential{JWT: token})
	require.Error(t, err)
	assert.False(t, auth.lockout.Locked(token, ""))
}

func TestAuthenticate_ValidJWTSucceeds(t *testing.T) {
	auth := newTestAuthenticator(t, 5)
	secret := []byte("0123456789abcdef0123456789abcdef")
	token, err := IssueToken(secret, "grace", "admin", time.Hour)
	require.NoError(t, err)

	p, err := auth.Authenticate(Credential{JWT: token})
	require.NoError(t, err)
	assert.Equal(t, "grace", p.ID)
	assert.Equal(t, RoleAdmin, p.Role)
}

func TestAuthenticate_NoCredentialRejected(t *testing.T) {
	auth := newTestAuthenticator(t, 5)
	_, err := auth.Authenticate(Credential{})
	require.Error(t, err)
}

func TestAuthenticate_IPFilterBlocksBeforeCredentialCheck(t *testing.T) {
	filt := NewIPFilter(nil, []string{"10.0.0.5"})
	auth := NewAuthenticator(
		[]byte("0123456789abcdef0123456789abcdef"),
		LockoutConfig{MaxFailedAttempts: 5, Window: time.Minute, Duration: time.Minute},
		RateLimitConfig{RequestsPerMinute: 6000, Burst: 6000},
		filt,
	)
	_, err := auth.Authenticate(Credential{APIKey: "irrelevant-key-24-bytes!", SourceIP: "10.0.0.5"})
	require.Error(t, err)
}

func TestRole_Ordering(t *testing.T) {
	assert.True(t, RoleReadonly < RoleOperator)
	assert.True(t, RoleOperator < RoleAdmin)
	assert.True(t, RoleAdmin < RoleSystem)
}

func TestParseRole_UnknownNameRejected(t *testing.T) {
	_, ok := ParseRole("superuser")
	assert.False(t, ok)
}

func TestRateLimiter_ExhaustedBucketDeniesWithRetryAfter(t *testing.T) {
	l := newRateLimiter(RateLimitConfig{RequestsPerMinute: 60, Burst: 1})
	allowed, _ := l.Allow("p1")
	assert.True(t, allowed)
	allowed, retryAfter := l.Allow("p1")
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestRateLimiter_BucketsAreIndependentPerPrincipal(t *testing.T) {
	l := newRateLimiter(RateLimitConfig{RequestsPerMinute: 60, Burst: 1})
	allowed, _ := l.Allow("p1")
	assert.True(t, allowed)
	allowed, _ = l.Allow("p2")
	assert.True(t, allowed, "a separate principal must have its own bucket")
}

func TestSanitize_RejectsControlCharacters(t *testing.T) {
	ok, _ := Sanitize("move forward\x0010cm")
	assert.False(t, ok)
}

func TestSanitize_RejectsShellMetacharacters(t *testing.T) {
	ok, _ := Sanitize("takeoff; rm -rf /")
	assert.False(t, ok)
}

func TestSanitize_RejectsPathTraversal(t *testing.T) {
	ok, _ := Sanitize("load ../../etc/passwd")
	assert.False(t, ok)
}

func TestSanitize_AcceptsCleanInput(t *testing.T) {
	ok, cleaned := Sanitize("  前に10センチ進んで  ")
	assert.True(t, ok)
	assert.Equal(t, "前に10センチ進んで", cleaned)
}
