package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskway/taskway/internal/auth"
	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/shared"
)

// Service exposes the directory to the guard, the auth flow and the
// admin endpoints.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ActiveAccount implements guard.Directory.
func (s *Service) ActiveAccount(ctx context.Context, role guard.Role, subjectID string) (*guard.Account, error) {
	acct, err := s.repo.Get(ctx, string(role), subjectID)
	if err != nil {
		return nil, err
	}
	return &guard.Account{SubjectID: acct.SubjectID, Role: guard.Role(acct.Role), Email: acct.Email}, nil
}

// CurrentTenant implements guard.TenantDirectory.
func (s *Service) CurrentTenant(ctx context.Context, subjectID string) (string, error) {
	return s.repo.CurrentTenant(ctx, subjectID)
}

// FindCredential implements auth.CredentialStore.
func (s *Service) FindCredential(ctx context.Context, role, email string) (*auth.Credential, error) {
	acct, err := s.repo.FindByEmail(ctx, role, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	return &auth.Credential{
		SubjectID:    acct.SubjectID,
		Role:         acct.Role,
		Email:        acct.Email,
		PasswordHash: acct.PasswordHash,
		CreatedAt:    acct.CreatedAt,
		UpdatedAt:    acct.UpdatedAt,
	}, nil
}

// RegisterRequest carries the fields needed to enroll an account.
type RegisterRequest struct {
	Role        string `json:"role" validate:"required,oneof=member staff admin"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,max=200"`
	Password    string `json:"password" validate:"required,min=8"`
}

// Register enrolls a new account and returns its subject ID.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("accounts: hash password: %w", err)
	}
	subjectID := uuid.NewString()
	err = s.repo.Create(ctx, Account{
		SubjectID:    subjectID,
		Role:         req.Role,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: string(hash),
	})
	if err != nil {
		return "", err
	}
	return subjectID, nil
}

// Retire soft-deletes an account; subsequent tokens for the subject fail
// enrollment at the guard.
func (s *Service) Retire(ctx context.Context, role, subjectID string) error {
	return s.repo.Retire(ctx, role, subjectID, time.Now().UTC())
}

// AssignTenant moves a staff account to a tenant.
func (s *Service) AssignTenant(ctx context.Context, subjectID, tenantID string) error {
	acct, err := s.repo.Get(ctx, string(guard.RoleStaff), subjectID)
	if err != nil {
		return err
	}
	if tenantID == "" {
		return shared.Errorf(shared.ErrValidation, "accounts: tenant required")
	}
	return s.repo.AssignTenant(ctx, acct.SubjectID, tenantID, time.Now().UTC())
}

// List returns accounts visible under the scope plus the total count.
func (s *Service) List(ctx context.Context, scope *guard.Scope) ([]Account, int, error) {
	return s.repo.List(ctx, scope)
}
