package boards

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
	boards    map[string]*Board
	members   map[string]bool // board + "/" + account
	lastScope *guard.Scope
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		boards:  make(map[string]*Board),
		members: make(map[string]bool),
	}
}

func (m *mockRepository) Create(ctx context.Context, board Board) error {
	board.CreatedAt = time.Now().UTC()
	board.UpdatedAt = board.CreatedAt
	m.boards[board.ID] = &board
	return nil
}

func (m *mockRepository) Get(ctx context.Context, id string) (*Board, error) {
	b, ok := m.boards[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *mockRepository) Rename(ctx context.Context, id, name string, at time.Time) error {
	b, ok := m.boards[id]
	if !ok || b.DeletedAt != nil {
		return shared.ErrNotFound
	}
	b.Name = name
	b.UpdatedAt = at
	return nil
}

func (m *mockRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	b, ok := m.boards[id]
	if !ok || b.DeletedAt != nil {
		return shared.ErrNotFound
	}
	b.DeletedAt = &at
	return nil
}

func (m *mockRepository) List(ctx context.Context, scope *guard.Scope) ([]Board, int, error) {
	m.lastScope = scope
	var out []Board
	for _, b := range m.boards {
		if b.DeletedAt == nil {
			out = append(out, *b)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) AddMember(ctx context.Context, mem Membership) error {
	key := mem.BoardID + "/" + mem.AccountID
	if m.members[key] {
		return shared.ErrConflict
	}
	m.members[key] = true
	return nil
}

func (m *mockRepository) RemoveMember(ctx context.Context, boardID, accountID string, at time.Time) error {
	key := boardID + "/" + accountID
	if !m.members[key] {
		return shared.ErrNotFound
	}
	delete(m.members, key)
	return nil
}

func (m *mockRepository) HasMember(ctx context.Context, boardID, accountID string) (bool, error) {
	return m.members[boardID+"/"+accountID], nil
}

var _ Repository = (*mockRepository)(nil)

type fakeTenants struct {
	assignments map[string]string
}

func (t *fakeTenants) CurrentTenant(ctx context.Context, subjectID string) (string, error) {
	return t.assignments[subjectID], nil
}

func newService(repo *mockRepository, assignments map[string]string) *Service {
	if assignments == nil {
		assignments = map[string]string{}
	}
	return NewService(repo, guard.NewVisibility(&fakeTenants{assignments: assignments}))
}

func member(id string) *guard.Principal {
	return &guard.Principal{SubjectID: id, Role: guard.RoleMember}
}

func TestCreateAndGetOwnBoard(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo, nil)

	board, err := svc.Create(context.Background(), member("U1"), "  Roadmap  ")
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", board.Name)
	assert.Equal(t, "U1", board.OwnerID)

	got, err := svc.Get(context.Background(), member("U1"), board.ID)
	require.NoError(t, err)
	assert.Equal(t, board.ID, got.ID)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	svc := newService(newMockRepository(), nil)
	_, err := svc.Create(context.Background(), member("U1"), "   ")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestStaffBoardStampedWithTenant(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo, map[string]string{"S1": "T1"})
	staff := &guard.Principal{SubjectID: "S1", Role: guard.RoleStaff}

	board, err := svc.Create(context.Background(), staff, "Ops")
	require.NoError(t, err)
	assert.Equal(t, "T1", board.TenantID)
}

func TestStaffWithoutTenantCannotCreate(t *testing.T) {
	svc := newService(newMockRepository(), nil)
	staff := &guard.Principal{SubjectID: "S1", Role: guard.RoleStaff}

	_, err := svc.Create(context.Background(), staff, "Ops")
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestGetStrangerForbidden(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo, nil)
	board, err := svc.Create(context.Background(), member("U1"), "Roadmap")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), member("U2"), board.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestMembershipGrantsAccess(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo, nil)
	board, err := svc.Create(context.Background(), member("U1"), "Roadmap")
	require.NoError(t, err)

	require.NoError(t, svc.AddMember(context.Background(), member("U1"), board.ID, "U2"))

	got, err := svc.Get(context.Background(), member("U2"), board.ID)
	require.NoError(t, err)
	assert.Equal(t, board.ID, got.ID)

	// Members may rename but not delete.
	_, err = svc.Rename(context.Background(), member("U2"), board.ID, "Roadmap 2026")
	require.NoError(t, err)
	err = svc.Delete(context.Background(), member("U2"), board.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDuplicateMembershipConflicts(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo, nil)
	board, err := svc.Create(context.Background(), member("U1"), "Roadmap")
	require.NoError(t, err)

	require.NoError(t, svc.AddMember(context.Background(), member("U1"), board.ID, "U2"))
	err = svc.AddMember(context.Background(), member("U1"), board.ID, "U2")
	assert.ErrorIs(t, err, shared.ErrConflict)

	// Re-adding after removal opens a fresh membership.
	require.NoError(t, svc.RemoveMember(context.Background(), member("U1"), board.ID, "U2"))
	assert.NoError(t, svc.AddMember(context.Background(), member("U1"), board.ID, "U2"))
}

func TestOwnerImplicitMembershipRejected(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo, nil)
	board, err := svc.Create(context.Background(), member("U1"), "Roadmap")
	require.NoError(t, err)

	err = svc.AddMember(context.Background(), member("U1"), board.ID, "U1")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestRosterManagedByOwnerOnly(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo, nil)
	board, err := svc.Create(context.Background(), member("U1"), "Roadmap")
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(context.Background(), member("U1"), board.ID, "U2"))

	// A plain member of the board cannot grow the roster.
	err = svc.AddMember(context.Background(), member("U2"), board.ID, "U3")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// An admin can.
	admin := &guard.Principal{SubjectID: "A1", Role: guard.RoleAdmin}
	assert.NoError(t, svc.AddMember(context.Background(), admin, board.ID, "U3"))
}

func TestDeletedBoardHidden(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo, nil)
	board, err := svc.Create(context.Background(), member("U1"), "Roadmap")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), member("U1"), board.ID))

	// Every operation on the deleted board reports NotFound, even for
	// the owner and for admins.
	_, err = svc.Get(context.Background(), member("U1"), board.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.Rename(context.Background(), member("U1"), board.ID, "X")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	admin := &guard.Principal{SubjectID: "A1", Role: guard.RoleAdmin}
	_, err = svc.Get(context.Background(), admin, board.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStaffSeesTenantBoards(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo, map[string]string{"S1": "T1", "S2": "T1"})
	s1 := &guard.Principal{SubjectID: "S1", Role: guard.RoleStaff}

	board, err := svc.Create(context.Background(), s1, "Ops")
	require.NoError(t, err)

	s2 := &guard.Principal{SubjectID: "S2", Role: guard.RoleStaff}
	got, err := svc.Get(context.Background(), s2, board.ID)
	require.NoError(t, err)
	assert.Equal(t, board.ID, got.ID)
}

func TestListScopedByRole(t *testing.T) {
	repo := newMockRepository()
	svc := newService(repo, map[string]string{"S1": "T1"})

	_, _, err := svc.List(context.Background(), member("U1"), guard.Filter{})
	require.NoError(t, err)
	require.NotNil(t, repo.lastScope)
	assert.True(t, strings.Contains(repo.lastScope.Clause(), "owner_id = $1"))

	staff := &guard.Principal{SubjectID: "S1", Role: guard.RoleStaff}
	_, _, err = svc.List(context.Background(), staff, guard.Filter{})
	require.NoError(t, err)
	assert.True(t, strings.Contains(repo.lastScope.Clause(), "tenant_id = $1"))

	admin := &guard.Principal{SubjectID: "A1", Role: guard.RoleAdmin}
	_, _, err = svc.List(context.Background(), admin, guard.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "WHERE deleted_at IS NULL", repo.lastScope.Clause())
}
