package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taskway/taskway/internal/shared"
)

const issuerName = "taskway"

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens constructs a token codec with the given signing secret and
// token lifetime.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured token lifetime.
func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for the subject under the given role. Each token
// carries a unique jti so it can be revoked individually.
func (t *Tokens) Issue(subjectID, role string, now time.Time) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   subjectID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a signed token, returning its claims.
// Any parse or validation failure maps to shared.ErrUnauthenticated.
func (t *Tokens) Verify(raw string) (*shared.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuerName), jwt.WithExpirationRequired())
	if err != nil {
		return nil, shared.Errorf(shared.ErrUnauthenticated, "auth: verify token")
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || claims.Subject == "" {
		return nil, shared.Errorf(shared.ErrUnauthenticated, "auth: malformed claims")
	}
	return &shared.TokenClaims{
		SubjectID: claims.Subject,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
