package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskway/taskway/internal/shared"
)

// Directory looks up live accounts for a role. Implementations must not
// return rows that are soft-deleted.
type Directory interface {
	// ActiveAccount returns the live account for (role, subjectID), or
	// shared.ErrNotFound when no such row exists.
	ActiveAccount(ctx context.Context, role Role, subjectID string) (*Account, error)
}

// Resolver turns decoded token claims into a trusted Principal. Claims are
// untrusted input: the subject may have been retired after the token was
// issued, so every request re-verifies the account row.
type Resolver struct {
	dir Directory
}

// NewResolver constructs a Resolver backed by the given directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve validates the claimed subject and role against the endpoint's
// required role and the account directory. It issues exactly one directory
// read and is safe to call repeatedly within a request.
func (r *Resolver) Resolve(ctx context.Context, subjectID string, claimed, required Role) (Principal, error) {
	if !claimed.Valid() || claimed != required {
		return Principal{}, shared.Errorf(shared.ErrRoleMismatch, "guard: token role %q, endpoint requires %q", claimed, required)
	}
	if subjectID == "" {
		return Principal{}, shared.Errorf(shared.ErrNotEnrolled, "guard: empty subject")
	}
	acct, err := r.dir.ActiveAccount(ctx, claimed, subjectID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Principal{}, shared.Errorf(shared.ErrNotEnrolled, "guard: no active %s account for subject", claimed)
		}
		return Principal{}, fmt.Errorf("guard: resolve principal: %w", err)
	}
	return Principal{SubjectID: acct.SubjectID, Role: acct.Role}, nil
}

// Authorize resolves the request context's decoded claims against the
// roles an endpoint accepts. The token's role picks which of the allowed
// roles applies; a token for any other role fails with ErrRoleMismatch.
func (r *Resolver) Authorize(ctx context.Context, allowed ...Role) (*Principal, error) {
	claims := shared.ClaimsFromContext(ctx)
	if claims == nil {
		return nil, shared.Errorf(shared.ErrUnauthenticated, "guard: no token claims")
	}
	claimed := Role(claims.Role)
	for _, role := range allowed {
		if role == claimed {
			p, err := r.Resolve(ctx, claims.SubjectID, claimed, role)
			if err != nil {
				return nil, err
			}
			return &p, nil
		}
	}
	return nil, shared.Errorf(shared.ErrRoleMismatch, "guard: token role %q not accepted here", claimed)
}
