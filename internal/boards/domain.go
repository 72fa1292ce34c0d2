package boards

import "time"

// Board is a shared workspace owned by one account and opened to others
// through memberships.
type Board struct {
	ID        string
	TenantID  string
	OwnerID   string
	Name      string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership links an account to a board it does not own. At most one
// live row may exist per (board, account) pair.
type Membership struct {
	ID        string
	BoardID   string
	AccountID string
	DeletedAt *time.Time
	CreatedAt time.Time
}
