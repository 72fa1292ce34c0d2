package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskway/taskway/internal/shared"
)

type stubCreds struct {
	cred *Credential
}

func (s *stubCreds) FindCredential(ctx context.Context, role, email string) (*Credential, error) {
	if s.cred == nil || s.cred.Role != role || s.cred.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.cred, nil
}

func newDenylist(t *testing.T) *Denylist {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewDenylist(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("signing-secret", time.Hour)

	raw, err := tokens.Issue("U1", "member", time.Now().UTC())
	require.NoError(t, err)

	claims, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "U1", claims.SubjectID)
	assert.Equal(t, "member", claims.Role)
	assert.NotEmpty(t, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestTokenVerifyRejectsTampering(t *testing.T) {
	tokens := NewTokens("signing-secret", time.Hour)
	other := NewTokens("different-secret", time.Hour)

	raw, err := other.Issue("U1", "member", time.Now().UTC())
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = tokens.Verify("not.a.token")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestTokenVerifyRejectsExpired(t *testing.T) {
	tokens := NewTokens("signing-secret", time.Minute)

	raw, err := tokens.Issue("U1", "member", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestLoginIssuesToken(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	creds := &stubCreds{cred: &Credential{
		SubjectID:    "U1",
		Role:         "member",
		Email:        "u1@test.local",
		PasswordHash: string(hashed),
	}}
	tokens := NewTokens("signing-secret", time.Hour)
	svc := NewService(creds, tokens, newDenylist(t))

	raw, err := svc.Login(context.Background(), "member", "u1@test.local", "correct horse")
	require.NoError(t, err)
	claims, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "U1", claims.SubjectID)
}

func TestLoginFailuresCollapse(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	creds := &stubCreds{cred: &Credential{
		SubjectID:    "U1",
		Role:         "member",
		Email:        "u1@test.local",
		PasswordHash: string(hashed),
	}}
	svc := NewService(creds, NewTokens("signing-secret", time.Hour), newDenylist(t))

	_, err = svc.Login(context.Background(), "member", "u1@test.local", "wrong")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = svc.Login(context.Background(), "member", "nobody@test.local", "correct horse")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = svc.Login(context.Background(), "staff", "u1@test.local", "correct horse")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	tokens := NewTokens("signing-secret", time.Hour)
	mw := Middleware{Tokens: tokens, Denylist: newDenylist(t)}

	raw, err := tokens.Issue("U1", "member", time.Now().UTC())
	require.NoError(t, err)

	var seen *shared.TokenClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ClaimsFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	res := httptest.NewRecorder()
	mw.RequireToken(next).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "U1", seen.SubjectID)
}

func TestMiddlewareRejectsMissingAndRevoked(t *testing.T) {
	tokens := NewTokens("signing-secret", time.Hour)
	denylist := newDenylist(t)
	mw := Middleware{Tokens: tokens, Denylist: denylist}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	res := httptest.NewRecorder()
	mw.RequireToken(next).ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	raw, err := tokens.Issue("U1", "member", time.Now().UTC())
	require.NoError(t, err)
	claims, err := tokens.Verify(raw)
	require.NoError(t, err)
	require.NoError(t, denylist.Revoke(context.Background(), claims.TokenID, claims.ExpiresAt))

	req = httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	res = httptest.NewRecorder()
	mw.RequireToken(next).ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	if !strings.Contains(res.Body.String(), "Unauthorized") {
		t.Fatalf("expected problem body, got %s", res.Body.String())
	}
}

func TestLogoutRevokes(t *testing.T) {
	tokens := NewTokens("signing-secret", time.Hour)
	denylist := newDenylist(t)
	svc := NewService(&stubCreds{}, tokens, denylist)

	raw, err := tokens.Issue("U1", "member", time.Now().UTC())
	require.NoError(t, err)
	claims, err := tokens.Verify(raw)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))
	revoked, err := denylist.IsRevoked(context.Background(), claims.TokenID)
	require.NoError(t, err)
	assert.True(t, revoked)
}
