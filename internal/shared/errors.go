package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across modules. Handlers map them to HTTP
// statuses in platform/httpx; services and the guard return them wrapped
// with context so callers can branch with errors.Is.
var (
	// ErrUnauthenticated indicates a missing, malformed, expired or
	// revoked credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrRoleMismatch indicates the token's role does not match the
	// role the endpoint requires.
	ErrRoleMismatch = errors.New("role mismatch")
	// ErrNotEnrolled indicates no live account row backs the token's
	// subject under the claimed role.
	ErrNotEnrolled = errors.New("not enrolled")
	// ErrForbidden indicates an authenticated caller is not entitled
	// to the target resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the target does not resolve to a visible,
	// non-deleted row. Soft-deleted resources report this, never
	// ErrForbidden, so deletion is not observable.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness invariant would be violated.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates a malformed caller-supplied value that
	// has no safe fallback.
	ErrValidation = errors.New("validation failed")
)

// Errorf wraps a sentinel with a formatted message while keeping it
// matchable via errors.Is.
func Errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, sentinel)...)
}
