// Package auth issues and verifies the bearer tokens that front every
// guarded operation. Verification only proves the token was signed by us
// and is not expired or revoked; enrollment is re-checked per request by
// the guard resolver.
package auth

import "time"

// Credential is an account row as seen by the login flow.
type Credential struct {
	SubjectID    string
	Role         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
