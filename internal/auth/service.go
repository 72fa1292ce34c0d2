package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskway/taskway/internal/shared"
)

// CredentialStore looks up live login credentials. Retired accounts must
// not be returned.
type CredentialStore interface {
	// FindCredential returns the live credential for (role, email), or
	// shared.ErrNotFound.
	FindCredential(ctx context.Context, role, email string) (*Credential, error)
}

// Service wraps the login and logout flows.
type Service struct {
	creds    CredentialStore
	tokens   *Tokens
	denylist *Denylist
}

// NewService constructs a new Service.
func NewService(creds CredentialStore, tokens *Tokens, denylist *Denylist) *Service {
	return &Service{creds: creds, tokens: tokens, denylist: denylist}
}

// Login validates credentials and issues a signed token. All failure
// modes collapse into ErrUnauthenticated so the response does not reveal
// whether the email exists.
func (s *Service) Login(ctx context.Context, role, email, password string) (string, error) {
	cred, err := s.creds.FindCredential(ctx, role, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", shared.Errorf(shared.ErrUnauthenticated, "auth: unknown credential")
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", shared.Errorf(shared.ErrUnauthenticated, "auth: password mismatch")
	}
	return s.tokens.Issue(cred.SubjectID, cred.Role, time.Now().UTC())
}

// Logout revokes the presented token for the remainder of its lifetime.
func (s *Service) Logout(ctx context.Context, claims *shared.TokenClaims) error {
	if claims == nil {
		return shared.Errorf(shared.ErrUnauthenticated, "auth: no token")
	}
	return s.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt)
}
