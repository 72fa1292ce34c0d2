package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskway/taskway/internal/shared"
)

type fakeDirectory struct {
	accounts map[string]*Account // key: role + "/" + subject
	err      error
	calls    int
}

func (d *fakeDirectory) ActiveAccount(ctx context.Context, role Role, subjectID string) (*Account, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	acct, ok := d.accounts[string(role)+"/"+subjectID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return acct, nil
}

type fakeTenants struct {
	assignments map[string]string
	err         error
	calls       int
}

func (t *fakeTenants) CurrentTenant(ctx context.Context, subjectID string) (string, error) {
	t.calls++
	if t.err != nil {
		return "", t.err
	}
	return t.assignments[subjectID], nil
}

func newDirectory(accounts ...*Account) *fakeDirectory {
	d := &fakeDirectory{accounts: make(map[string]*Account)}
	for _, a := range accounts {
		d.accounts[string(a.Role)+"/"+a.SubjectID] = a
	}
	return d
}

func TestResolverHappyPath(t *testing.T) {
	dir := newDirectory(&Account{SubjectID: "U1", Role: RoleMember, Email: "u1@test.local"})
	r := NewResolver(dir)

	p, err := r.Resolve(context.Background(), "U1", RoleMember, RoleMember)
	require.NoError(t, err)
	assert.Equal(t, "U1", p.SubjectID)
	assert.Equal(t, RoleMember, p.Role)
	assert.Equal(t, 1, dir.calls)
}

func TestResolverRoleMismatch(t *testing.T) {
	dir := newDirectory(&Account{SubjectID: "U1", Role: RoleMember})
	r := NewResolver(dir)

	_, err := r.Resolve(context.Background(), "U1", RoleMember, RoleStaff)
	require.ErrorIs(t, err, shared.ErrRoleMismatch)
	// The directory must not be consulted for a mismatched role.
	assert.Zero(t, dir.calls)

	_, err = r.Resolve(context.Background(), "U1", Role("intruder"), Role("intruder"))
	require.ErrorIs(t, err, shared.ErrRoleMismatch)
}

func TestResolverNotEnrolled(t *testing.T) {
	r := NewResolver(newDirectory())

	_, err := r.Resolve(context.Background(), "ghost", RoleMember, RoleMember)
	require.ErrorIs(t, err, shared.ErrNotEnrolled)

	_, err = r.Resolve(context.Background(), "", RoleMember, RoleMember)
	require.ErrorIs(t, err, shared.ErrNotEnrolled)
}

func TestResolverDirectoryFailure(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection reset")}
	r := NewResolver(dir)

	_, err := r.Resolve(context.Background(), "U1", RoleMember, RoleMember)
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrNotEnrolled)
}

func TestResolverIdempotent(t *testing.T) {
	dir := newDirectory(&Account{SubjectID: "U1", Role: RoleMember})
	r := NewResolver(dir)

	first, err := r.Resolve(context.Background(), "U1", RoleMember, RoleMember)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "U1", RoleMember, RoleMember)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAuthorizeFromContext(t *testing.T) {
	dir := newDirectory(
		&Account{SubjectID: "U1", Role: RoleMember},
		&Account{SubjectID: "A1", Role: RoleAdmin},
	)
	r := NewResolver(dir)

	ctx := shared.ContextWithClaims(context.Background(), &shared.TokenClaims{SubjectID: "U1", Role: "member"})
	p, err := r.Authorize(ctx, RoleMember, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleMember, p.Role)

	// Token role outside the endpoint's accepted set.
	_, err = r.Authorize(ctx, RoleStaff)
	assert.ErrorIs(t, err, shared.ErrRoleMismatch)

	// No claims at all.
	_, err = r.Authorize(context.Background(), RoleMember)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	// Retired subject: role accepted, enrollment gone.
	ghost := shared.ContextWithClaims(context.Background(), &shared.TokenClaims{SubjectID: "gone", Role: "member"})
	_, err = r.Authorize(ghost, RoleMember)
	assert.ErrorIs(t, err, shared.ErrNotEnrolled)
}

func deleted() *time.Time {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return &ts
}

func TestOwnershipDeletedAlwaysNotFound(t *testing.T) {
	res := Resource{ID: "R1", OwnerID: "U1", DeletedAt: deleted()}
	principals := []Principal{
		{SubjectID: "U1", Role: RoleMember}, // owner
		{SubjectID: "S1", Role: RoleStaff, TenantID: "T1"},
		{SubjectID: "A1", Role: RoleAdmin},
	}
	for _, p := range principals {
		err := Access{}.Check(context.Background(), p, res)
		assert.ErrorIs(t, err, shared.ErrNotFound, "role %s", p.Role)
		assert.NotErrorIs(t, err, shared.ErrForbidden)
	}
}

func TestOwnershipOwnerAllowed(t *testing.T) {
	res := Resource{ID: "R1", OwnerID: "U1"}
	err := Access{}.Check(context.Background(), Principal{SubjectID: "U1", Role: RoleMember}, res)
	assert.NoError(t, err)
}

func TestOwnershipStrangerForbidden(t *testing.T) {
	res := Resource{ID: "R1", OwnerID: "U2"}
	err := Access{}.Check(context.Background(), Principal{SubjectID: "U1", Role: RoleMember}, res)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestOwnershipAdminAllowed(t *testing.T) {
	res := Resource{ID: "R1", OwnerID: "U2"}
	err := Access{}.Check(context.Background(), Principal{SubjectID: "A1", Role: RoleAdmin}, res)
	assert.NoError(t, err)
}

func TestOwnershipTenantRole(t *testing.T) {
	access := Access{TenantRoles: []Role{RoleStaff}}
	res := Resource{ID: "R1", OwnerID: "U2", TenantID: "T1"}

	err := access.Check(context.Background(), Principal{SubjectID: "S1", Role: RoleStaff, TenantID: "T1"}, res)
	assert.NoError(t, err)

	err = access.Check(context.Background(), Principal{SubjectID: "S2", Role: RoleStaff, TenantID: "T2"}, res)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// Staff without a resolved tenant never match.
	err = access.Check(context.Background(), Principal{SubjectID: "S3", Role: RoleStaff}, res)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestOwnershipMembership(t *testing.T) {
	members := func(ctx context.Context, resourceID, subjectID string) (bool, error) {
		return resourceID == "R1" && subjectID == "U3", nil
	}
	access := Access{Members: members}
	res := Resource{ID: "R1", OwnerID: "U2"}

	err := access.Check(context.Background(), Principal{SubjectID: "U3", Role: RoleMember}, res)
	assert.NoError(t, err)

	err = access.Check(context.Background(), Principal{SubjectID: "U4", Role: RoleMember}, res)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestOwnershipMembershipLookupFailure(t *testing.T) {
	members := func(ctx context.Context, resourceID, subjectID string) (bool, error) {
		return false, errors.New("connection reset")
	}
	err := Access{Members: members}.Check(context.Background(), Principal{SubjectID: "U1", Role: RoleMember}, Resource{ID: "R1", OwnerID: "U2"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrForbidden)
}

var tasksTable = Table{
	OwnerColumn:   "owner_id",
	TenantColumn:  "tenant_id",
	SearchColumns: []string{"title", "body"},
	DateColumn:    "due_date",
	FilterColumns: []string{"status"},
	Sortable:      []string{"created_at", "due_date", "title", "status"},
	DefaultSort:   "created_at",
	DefaultDesc:   true,
	DefaultLimit:  20,
}

func TestVisibilityMemberSelfScope(t *testing.T) {
	v := NewVisibility(&fakeTenants{})
	p := &Principal{SubjectID: "U1", Role: RoleMember}

	sc, err := v.Build(context.Background(), p, tasksTable, Filter{})
	require.NoError(t, err)
	assert.Equal(t, "WHERE deleted_at IS NULL AND owner_id = $1", sc.Clause())
	assert.Equal(t, []any{"U1"}, sc.Args())
	assert.Equal(t, "created_at DESC", sc.OrderBy)
	assert.Equal(t, 1, sc.Page)
	assert.Equal(t, 20, sc.Limit)
	assert.Zero(t, sc.Offset)
}

func TestVisibilityStaffTenantScope(t *testing.T) {
	tenants := &fakeTenants{assignments: map[string]string{"S1": "T1"}}
	v := NewVisibility(tenants)
	p := &Principal{SubjectID: "S1", Role: RoleStaff}

	sc, err := v.Build(context.Background(), p, tasksTable, Filter{})
	require.NoError(t, err)
	assert.Equal(t, "WHERE deleted_at IS NULL AND tenant_id = $1", sc.Clause())
	assert.Equal(t, []any{"T1"}, sc.Args())
	assert.Equal(t, "T1", p.TenantID)

	// Second build reuses the resolved assignment.
	_, err = v.Build(context.Background(), p, tasksTable, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, tenants.calls)
}

func TestVisibilityStaffWithoutAssignmentForbidden(t *testing.T) {
	v := NewVisibility(&fakeTenants{})
	p := &Principal{SubjectID: "S1", Role: RoleStaff}

	_, err := v.Build(context.Background(), p, tasksTable, Filter{})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestVisibilityForeignTenantFilterNeverWidens(t *testing.T) {
	tenants := &fakeTenants{assignments: map[string]string{"S1": "T1"}}
	v := NewVisibility(tenants)
	p := &Principal{SubjectID: "S1", Role: RoleStaff}

	// A staff caller asking for another tenant still gets its own scope.
	sc, err := v.Build(context.Background(), p, tasksTable, Filter{TenantID: "T9"})
	require.NoError(t, err)
	assert.Equal(t, []any{"T1"}, sc.Args())
	assert.NotContains(t, sc.Args(), "T9")

	// Members never see a tenant clause at all.
	member := &Principal{SubjectID: "U1", Role: RoleMember}
	sc, err = v.Build(context.Background(), member, tasksTable, Filter{TenantID: "T9"})
	require.NoError(t, err)
	assert.Equal(t, "WHERE deleted_at IS NULL AND owner_id = $1", sc.Clause())
}

func TestVisibilityAdminTenantFilterNarrows(t *testing.T) {
	v := NewVisibility(&fakeTenants{})
	p := &Principal{SubjectID: "A1", Role: RoleAdmin}

	sc, err := v.Build(context.Background(), p, tasksTable, Filter{})
	require.NoError(t, err)
	assert.Equal(t, "WHERE deleted_at IS NULL", sc.Clause())

	sc, err = v.Build(context.Background(), p, tasksTable, Filter{TenantID: "T2"})
	require.NoError(t, err)
	assert.Equal(t, "WHERE deleted_at IS NULL AND tenant_id = $1", sc.Clause())
	assert.Equal(t, []any{"T2"}, sc.Args())
}

func TestVisibilityFilters(t *testing.T) {
	v := NewVisibility(&fakeTenants{})
	p := &Principal{SubjectID: "U1", Role: RoleMember}
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	sc, err := v.Build(context.Background(), p, tasksTable, Filter{
		Search:   "Launch",
		DateFrom: &from,
		DateTo:   &to,
		Equals:   map[string]string{"status": "doing", "secret_column": "x"},
	})
	require.NoError(t, err)

	clause := sc.Clause()
	assert.Contains(t, clause, "(title ILIKE $2 OR body ILIKE $3)")
	assert.Contains(t, clause, "due_date >= $4")
	assert.Contains(t, clause, "due_date <= $5")
	assert.Contains(t, clause, "status = $6")
	assert.NotContains(t, clause, "secret_column")
	assert.Contains(t, sc.Args(), "%launch%")
}

func TestVisibilitySearchEscapesLikeMeta(t *testing.T) {
	v := NewVisibility(&fakeTenants{})
	p := &Principal{SubjectID: "U1", Role: RoleMember}

	sc, err := v.Build(context.Background(), p, tasksTable, Filter{Search: "100%_done"})
	require.NoError(t, err)
	assert.Contains(t, sc.Args(), `%100\%\_done%`)
}

func TestVisibilitySortAllowList(t *testing.T) {
	v := NewVisibility(&fakeTenants{})
	p := &Principal{SubjectID: "U1", Role: RoleMember}

	sc, err := v.Build(context.Background(), p, tasksTable, Filter{SortBy: "due_date", SortDesc: false})
	require.NoError(t, err)
	assert.Equal(t, "due_date ASC", sc.OrderBy)

	// Unlisted sort keys yield the same ordering as no sort key at all.
	unlisted, err := v.Build(context.Background(), p, tasksTable, Filter{SortBy: "password_hash", SortDesc: false})
	require.NoError(t, err)
	unset, err := v.Build(context.Background(), p, tasksTable, Filter{})
	require.NoError(t, err)
	assert.Equal(t, unset.OrderBy, unlisted.OrderBy)
}

func TestVisibilityPaginationDefaultsAndClamp(t *testing.T) {
	v := NewVisibility(&fakeTenants{})
	p := &Principal{SubjectID: "U1", Role: RoleMember}

	sc, err := v.Build(context.Background(), p, tasksTable, Filter{Page: -3, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, sc.Page)
	assert.Equal(t, 20, sc.Limit)

	sc, err = v.Build(context.Background(), p, tasksTable, Filter{Page: 4, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, shared.MaxPageSize, sc.Limit)
	assert.Equal(t, 3*shared.MaxPageSize, sc.Offset)
}

func TestScopeSQLRendering(t *testing.T) {
	v := NewVisibility(&fakeTenants{})
	p := &Principal{SubjectID: "U1", Role: RoleMember}

	sc, err := v.Build(context.Background(), p, tasksTable, Filter{Page: 2, Limit: 10})
	require.NoError(t, err)

	sql, args := sc.PageSQL("SELECT id FROM tasks")
	assert.Equal(t, "SELECT id FROM tasks WHERE deleted_at IS NULL AND owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3", sql)
	assert.Equal(t, []any{"U1", 10, 10}, args)

	count, countArgs := sc.CountSQL("SELECT count(*) FROM tasks")
	assert.Equal(t, "SELECT count(*) FROM tasks WHERE deleted_at IS NULL AND owner_id = $1", count)
	assert.Equal(t, []any{"U1"}, countArgs)
}

func TestPaginationCeil(t *testing.T) {
	cases := []struct {
		total, limit, pages int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 20, 5},
	}
	for _, tc := range cases {
		pg := shared.NewPagination(1, tc.limit, tc.total)
		assert.Equal(t, tc.pages, pg.Pages, "total=%d limit=%d", tc.total, tc.limit)
		assert.Equal(t, tc.total, pg.Records)
	}
}
