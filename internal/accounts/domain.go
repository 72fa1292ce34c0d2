// Package accounts is the principal directory: one row per (subject,
// role) pair, soft-deleted on retirement, plus the staff tenant
// assignment join. It backs the guard resolver, the staff tenant lookup
// and the login credential check.
package accounts

import "time"

// Account is a directory row.
type Account struct {
	SubjectID    string
	Role         string
	Email        string
	DisplayName  string
	PasswordHash string
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TenantAssignment links a staff account to its current tenant.
type TenantAssignment struct {
	ID        string
	SubjectID string
	TenantID  string
	DeletedAt *time.Time
	CreatedAt time.Time
}
