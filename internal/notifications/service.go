package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/shared"
)

// notificationsTable leaves TenantColumn empty on purpose: inboxes are
// personal, so staff are scoped to their own rows like members.
var notificationsTable = guard.Table{
	OwnerColumn:   "recipient_id",
	SearchColumns: []string{"kind"},
	DateColumn:    "created_at",
	FilterColumns: []string{"kind"},
	Sortable:      []string{"created_at"},
	DefaultSort:   "created_at",
	DefaultDesc:   true,
	DefaultLimit:  shared.DefaultPageSize,
}

// Service owns inbox rules. Only the recipient or an admin touches a
// notification.
type Service struct {
	repo       Repository
	visibility *guard.Visibility
}

// NewService constructs a Service.
func NewService(repo Repository, visibility *guard.Visibility) *Service {
	return &Service{repo: repo, visibility: visibility}
}

// Deliver drops a notification into an inbox. It has no principal; the
// worker calls it on behalf of the system.
func (s *Service) Deliver(ctx context.Context, recipientID, tenantID string, kind Kind, payload map[string]any) (string, error) {
	if recipientID == "" {
		return "", shared.Errorf(shared.ErrValidation, "notifications: recipient required")
	}
	n := Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		TenantID:    tenantID,
		Kind:        kind,
		Payload:     payload,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return "", fmt.Errorf("notifications: deliver: %w", err)
	}
	return n.ID, nil
}

// Get returns a notification the principal may see.
func (s *Service) Get(ctx context.Context, p *guard.Principal, id string) (*Notification, error) {
	return s.fetchGuarded(ctx, p, id)
}

// MarkRead stamps the notification as read. Repeated calls keep the
// first timestamp.
func (s *Service) MarkRead(ctx context.Context, p *guard.Principal, id string) (*Notification, error) {
	if _, err := s.fetchGuarded(ctx, p, id); err != nil {
		return nil, err
	}
	if err := s.repo.MarkRead(ctx, id, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes a notification from the inbox.
func (s *Service) Delete(ctx context.Context, p *guard.Principal, id string) error {
	if _, err := s.fetchGuarded(ctx, p, id); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id, time.Now().UTC())
}

// List returns the principal's inbox page.
func (s *Service) List(ctx context.Context, p *guard.Principal, filter guard.Filter) ([]Notification, shared.Pagination, error) {
	scope, err := s.visibility.Build(ctx, p, notificationsTable, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	rows, total, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("notifications: list: %w", err)
	}
	return rows, shared.NewPagination(scope.Page, scope.Limit, total), nil
}

func (s *Service) fetchGuarded(ctx context.Context, p *guard.Principal, id string) (*Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res := guard.Resource{ID: n.ID, OwnerID: n.RecipientID, TenantID: n.TenantID, DeletedAt: n.DeletedAt}
	if err := (guard.Access{}).Check(ctx, *p, res); err != nil {
		return nil, err
	}
	return n, nil
}
