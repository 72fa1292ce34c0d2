package guard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/taskway/taskway/internal/shared"
)

// TenantDirectory resolves a staff account's current tenant assignment.
type TenantDirectory interface {
	// CurrentTenant returns the tenant the subject is currently assigned
	// to, or an empty string when there is no active assignment.
	CurrentTenant(ctx context.Context, subjectID string) (string, error)
}

// Table describes how a resource table is scoped, searched and sorted.
// One value per module, declared next to its repository.
type Table struct {
	// OwnerColumn is the self-scope column ("owner_id", "recipient_id").
	OwnerColumn string
	// TenantColumn is empty for tables without tenant scope.
	TenantColumn string
	// SearchColumns are matched case-insensitively by free-text search.
	SearchColumns []string
	// DateColumn receives the from/to range filter.
	DateColumn string
	// FilterColumns are the equals-filter columns callers may constrain.
	FilterColumns []string
	// Sortable is the sort key allow-list; requests outside it fall back
	// to DefaultSort.
	Sortable     []string
	DefaultSort  string
	DefaultDesc  bool
	DefaultLimit int
}

// Filter carries caller-supplied list constraints before scoping. All
// fields are optional; malformed values fall back to safe defaults rather
// than erroring.
type Filter struct {
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	// Equals maps column name to required value. Columns outside the
	// table's allow-list are dropped.
	Equals map[string]string
	// TenantID is the caller-requested tenant. Honored (as narrowing)
	// for admins only; other roles always get their own scope.
	TenantID string
	SortBy   string
	SortDesc bool
	Page     int
	Limit    int
}

// Scope is the effective list predicate for one request: the narrowed
// WHERE conditions plus resolved ordering and pagination. It is derived
// per request and never reused.
type Scope struct {
	Predicate
	OrderBy string
	Page    int
	Limit   int
	Offset  int
}

// PageSQL renders the paginated SELECT for the scope.
func (s *Scope) PageSQL(base string) (string, []any) {
	n := s.placeholders()
	sql := fmt.Sprintf("%s %s ORDER BY %s LIMIT $%d OFFSET $%d", base, s.Clause(), s.OrderBy, n+1, n+2)
	args := append(append([]any{}, s.Args()...), s.Limit, s.Offset)
	return sql, args
}

// CountSQL renders the matching-row count query for the scope.
func (s *Scope) CountSQL(base string) (string, []any) {
	return strings.TrimSpace(base + " " + s.Clause()), s.Args()
}

// Visibility builds per-request visibility scopes. It holds the tenant
// directory used to resolve staff assignments; everything else is passed
// per call.
type Visibility struct {
	tenants TenantDirectory
}

// NewVisibility constructs a Visibility builder.
func NewVisibility(tenants TenantDirectory) *Visibility {
	return &Visibility{tenants: tenants}
}

var foldCaser = cases.Fold()

// Build narrows the caller's filter to what the principal may see. The
// returned scope always excludes soft-deleted rows and adds a role scope
// clause; caller-supplied values can only narrow the result set further,
// never widen it.
func (v *Visibility) Build(ctx context.Context, p *Principal, t Table, f Filter) (*Scope, error) {
	sc := &Scope{}
	sc.And("deleted_at IS NULL")

	switch p.Role {
	case RoleMember:
		sc.And(t.OwnerColumn+" = ?", p.SubjectID)
	case RoleStaff:
		if t.TenantColumn == "" {
			// No tenant scope on this table; staff fall back to rows
			// they own.
			sc.And(t.OwnerColumn+" = ?", p.SubjectID)
			break
		}
		tenant, err := v.Tenant(ctx, p)
		if err != nil {
			return nil, err
		}
		sc.And(t.TenantColumn+" = ?", tenant)
	case RoleAdmin:
		// Unrestricted beyond soft-delete exclusion. An explicit tenant
		// filter narrows the result set and is honored.
		if f.TenantID != "" && t.TenantColumn != "" {
			sc.And(t.TenantColumn+" = ?", f.TenantID)
		}
	default:
		return nil, shared.Errorf(shared.ErrRoleMismatch, "guard: unknown role %q", p.Role)
	}

	if s := strings.TrimSpace(f.Search); s != "" && len(t.SearchColumns) > 0 {
		pattern := "%" + escapeLike(foldCaser.String(s)) + "%"
		parts := make([]string, len(t.SearchColumns))
		for i, col := range t.SearchColumns {
			parts[i] = col + " ILIKE ?"
			sc.args = append(sc.args, pattern)
		}
		sc.conds = append(sc.conds, "("+strings.Join(parts, " OR ")+")")
	}

	if t.DateColumn != "" {
		if f.DateFrom != nil {
			sc.And(t.DateColumn+" >= ?", *f.DateFrom)
		}
		if f.DateTo != nil {
			sc.And(t.DateColumn+" <= ?", *f.DateTo)
		}
	}

	for _, col := range t.FilterColumns {
		if val, ok := f.Equals[col]; ok && val != "" {
			sc.And(col+" = ?", val)
		}
	}

	sc.OrderBy = t.orderBy(f.SortBy, f.SortDesc)

	limit := f.Limit
	if limit <= 0 {
		limit = t.DefaultLimit
	}
	sc.Page, sc.Limit = shared.ClampPage(f.Page, limit)
	sc.Offset = (sc.Page - 1) * sc.Limit
	return sc, nil
}

// Tenant looks up the staff principal's current assignment once and
// caches it on the principal for the rest of the request. It fails with
// ErrForbidden when the principal has no active assignment.
func (v *Visibility) Tenant(ctx context.Context, p *Principal) (string, error) {
	if p.TenantID != "" {
		return p.TenantID, nil
	}
	tenant, err := v.tenants.CurrentTenant(ctx, p.SubjectID)
	if err != nil {
		return "", fmt.Errorf("guard: resolve tenant: %w", err)
	}
	if tenant == "" {
		return "", shared.Errorf(shared.ErrForbidden, "guard: subject %s has no active tenant assignment", p.SubjectID)
	}
	p.TenantID = tenant
	return tenant, nil
}

func (t Table) orderBy(requested string, desc bool) string {
	col := t.DefaultSort
	dir := t.DefaultDesc
	for _, allowed := range t.Sortable {
		if requested == allowed {
			col = requested
			dir = desc
			break
		}
	}
	if dir {
		return col + " DESC"
	}
	return col + " ASC"
}

// escapeLike escapes LIKE metacharacters in user-supplied search text.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
