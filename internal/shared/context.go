package shared

import (
	"context"
	"time"
)

// TokenClaims are the decoded, signature-verified claims of a bearer
// token. They are untrusted input until the guard resolver confirms a
// live account row for the subject.
type TokenClaims struct {
	SubjectID string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

type claimsContextKey struct{}

// ContextWithClaims stores decoded token claims in the context.
func ContextWithClaims(ctx context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts decoded token claims, or nil when the
// request carried no valid token.
func ClaimsFromContext(ctx context.Context) *TokenClaims {
	claims, _ := ctx.Value(claimsContextKey{}).(*TokenClaims)
	return claims
}
