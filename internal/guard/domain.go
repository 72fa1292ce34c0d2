// Package guard implements the role-scoped authorization and visibility
// checks every Taskway operation runs before touching the store: resolving
// a trusted principal from decoded token claims, deciding single-resource
// access, and narrowing list predicates to what the caller may see.
package guard

import "time"

// Role is the closed set of account roles.
type Role string

const (
	// RoleMember is a regular end user; list queries are scoped to rows
	// the member owns (or is the recipient of).
	RoleMember Role = "member"
	// RoleStaff is organization staff; list queries are scoped to the
	// staff account's current tenant.
	RoleStaff Role = "staff"
	// RoleAdmin has unrestricted visibility beyond soft-delete exclusion.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated actor for one request. It is materialized
// by the Resolver from decoded token claims plus one directory lookup and
// is never persisted or shared across requests.
type Principal struct {
	SubjectID string
	Role      Role

	// TenantID is the staff account's current tenant assignment, filled
	// lazily by the visibility builder. Empty for other roles.
	TenantID string
}

// Resource carries the authorization-relevant fields of an already
// fetched row. TenantID is empty for tables without tenant scope.
type Resource struct {
	ID        string
	OwnerID   string
	TenantID  string
	DeletedAt *time.Time
}

// Account is a live directory row backing a token subject.
type Account struct {
	SubjectID string
	Role      Role
	Email     string
}
