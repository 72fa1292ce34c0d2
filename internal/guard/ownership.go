package guard

import (
	"context"
	"fmt"

	"github.com/taskway/taskway/internal/shared"
)

// MembershipLookup reports whether a live (non-deleted) membership links
// the subject to the resource.
type MembershipLookup func(ctx context.Context, resourceID, subjectID string) (bool, error)

// Access describes how a resource type is shared beyond plain ownership.
// The zero value grants access to admins and owners only.
type Access struct {
	// Unconditional lists roles with blanket access to the type,
	// regardless of ownership or tenant. RoleAdmin is always implied.
	Unconditional []Role
	// TenantRoles lists roles allowed when the resource's tenant matches
	// the principal's resolved tenant.
	TenantRoles []Role
	// Members, when set, grants access through a live membership row.
	Members MembershipLookup
}

// Check decides whether the principal may act on a single already-fetched
// resource. Rules are evaluated in order, first match wins:
//
//  1. soft-deleted resource -> shared.ErrNotFound (existence stays hidden)
//  2. admin or unconditional role -> allow
//  3. tenant role with matching tenant -> allow
//  4. owner match -> allow
//  5. live membership -> allow
//  6. otherwise -> shared.ErrForbidden
//
// The decision is synchronous and issues at most one membership lookup.
func (a Access) Check(ctx context.Context, p Principal, res Resource) error {
	if res.DeletedAt != nil {
		return shared.Errorf(shared.ErrNotFound, "guard: resource %s", res.ID)
	}
	if p.Role == RoleAdmin || containsRole(a.Unconditional, p.Role) {
		return nil
	}
	if res.TenantID != "" && p.TenantID != "" && res.TenantID == p.TenantID && containsRole(a.TenantRoles, p.Role) {
		return nil
	}
	if res.OwnerID != "" && res.OwnerID == p.SubjectID {
		return nil
	}
	if a.Members != nil {
		ok, err := a.Members(ctx, res.ID, p.SubjectID)
		if err != nil {
			return fmt.Errorf("guard: membership lookup: %w", err)
		}
		if ok {
			return nil
		}
	}
	return shared.Errorf(shared.ErrForbidden, "guard: subject %s may not access resource %s", p.SubjectID, res.ID)
}

func containsRole(roles []Role, r Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}
