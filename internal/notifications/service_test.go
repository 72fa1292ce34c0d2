package notifications

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/shared"
)

type mockRepository struct {
	rows      map[string]*Notification
	lastScope *guard.Scope
}

func newMockRepository() *mockRepository {
	return &mockRepository{rows: make(map[string]*Notification)}
}

func (m *mockRepository) Create(ctx context.Context, n Notification) error {
	n.CreatedAt = time.Now().UTC()
	m.rows[n.ID] = &n
	return nil
}

func (m *mockRepository) Get(ctx context.Context, id string) (*Notification, error) {
	n, ok := m.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *n
	return &copied, nil
}

func (m *mockRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	n, ok := m.rows[id]
	if !ok || n.DeletedAt != nil {
		return shared.ErrNotFound
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	return nil
}

func (m *mockRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	n, ok := m.rows[id]
	if !ok || n.DeletedAt != nil {
		return shared.ErrNotFound
	}
	n.DeletedAt = &at
	return nil
}

func (m *mockRepository) List(ctx context.Context, scope *guard.Scope) ([]Notification, int, error) {
	m.lastScope = scope
	var out []Notification
	for _, n := range m.rows {
		if n.DeletedAt == nil {
			out = append(out, *n)
		}
	}
	return out, len(out), nil
}

var _ Repository = (*mockRepository)(nil)

type fakeTenants struct{}

func (fakeTenants) CurrentTenant(ctx context.Context, subjectID string) (string, error) {
	return "", nil
}

func newService(repo *mockRepository) *Service {
	return NewService(repo, guard.NewVisibility(fakeTenants{}))
}

func member(id string) *guard.Principal {
	return &guard.Principal{SubjectID: id, Role: guard.RoleMember}
}

func TestDeliverAndRead(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo)

	id, err := svc.Deliver(context.Background(), "U1", "", KindTaskAssigned, map[string]any{"task_id": "T1"})
	require.NoError(t, err)

	n, err := svc.Get(context.Background(), member("U1"), id)
	require.NoError(t, err)
	assert.Nil(t, n.ReadAt)
	assert.Equal(t, "T1", n.Payload["task_id"])

	read, err := svc.MarkRead(context.Background(), member("U1"), id)
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)

	// Reading again keeps the first timestamp.
	first := *read.ReadAt
	again, err := svc.MarkRead(context.Background(), member("U1"), id)
	require.NoError(t, err)
	assert.True(t, again.ReadAt.Equal(first))
}

func TestDeliverRequiresRecipient(t *testing.T) {
	svc := newService(newMockRepository())
	_, err := svc.Deliver(context.Background(), "", "", KindTaskAssigned, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestInboxIsPersonal(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo)
	id, err := svc.Deliver(context.Background(), "U1", "T1", KindTaskAssigned, nil)
	require.NoError(t, err)

	// Another member is refused outright.
	_, err = svc.Get(context.Background(), member("U2"), id)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// Staff get no tenant shortcut into inboxes.
	staff := &guard.Principal{SubjectID: "S1", Role: guard.RoleStaff, TenantID: "T1"}
	_, err = svc.Get(context.Background(), staff, id)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	admin := &guard.Principal{SubjectID: "A1", Role: guard.RoleAdmin}
	_, err = svc.Get(context.Background(), admin, id)
	assert.NoError(t, err)
}

func TestDeletedNotificationHidden(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo)
	id, err := svc.Deliver(context.Background(), "U1", "", KindTaskAssigned, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), member("U1"), id))

	_, err = svc.Get(context.Background(), member("U1"), id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.MarkRead(context.Background(), member("U1"), id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListScopesStaffToOwnInbox(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo)

	staff := &guard.Principal{SubjectID: "S1", Role: guard.RoleStaff, TenantID: "T1"}
	_, _, err := svc.List(context.Background(), staff, guard.Filter{})
	require.NoError(t, err)
	require.NotNil(t, repo.lastScope)
	assert.True(t, strings.Contains(repo.lastScope.Clause(), "recipient_id = $1"))
}
