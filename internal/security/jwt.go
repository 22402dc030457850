package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrExpiredCredential distinguishes an expired-but-otherwise-valid
// credential from a genuinely invalid one: expired credentials do not
// increment the lockout counter (spec §8 boundary behavior).
var ErrExpiredCredential = errors.New("credential expired")

// Claims is the JWT payload this gateway accepts: `sub`, `role`, plus the
// registered `exp`/`iat` claims (spec §4.5).
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// jwtVerifier verifies HS256 (or stronger) tokens against a process-wide
// secret loaded at init, rejecting unknown roles and expired tokens. It
// takes the raw token (no bearer-prefix parsing). The HMAC type-assertion
// guard mirrors the gateway's own
// reference auth example, generalized to carry `role` rather than just a
// username.
type jwtVerifier struct {
	secret []byte
}

func newJWTVerifier(secret []byte) *jwtVerifier {
	return &jwtVerifier{secret: secret}
}

func (v *jwtVerifier) verify(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method)
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpiredCredential
		}
		return Principal{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return Principal{}, fmt.Errorf("invalid token")
	}

	role, ok := ParseRole(claims.Role)
	if !ok {
		return Principal{}, fmt.Errorf("unknown role: %s", claims.Role)
	}

	var expiresAt *time.Time
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		expiresAt = &t
	}

	return Principal{
		ID:             claims.Subject,
		Role:           role,
		CredentialKind: CredentialJWT,
		ExpiresAt:      expiresAt,
	}, nil
}

// IssueToken builds a signed JWT for subject/role, for test fixtures and
// administrative token issuance; the server itself only verifies.
func IssueToken(secret []byte, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
