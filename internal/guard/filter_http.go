package guard

import (
	"net/http"
	"strconv"
	"time"
)

// ParseFilter extracts the common list parameters from a request's query
// string. Malformed numbers and dates are dropped rather than rejected;
// the visibility builder applies the safe defaults.
//
// Recognized keys: search, from, to, tenant_id, sort, order (asc|desc),
// page, limit, plus one equals-filter per column via filterColumns.
func ParseFilter(r *http.Request, filterColumns ...string) Filter {
	q := r.URL.Query()
	f := Filter{
		Search:   q.Get("search"),
		TenantID: q.Get("tenant_id"),
		SortBy:   q.Get("sort"),
		SortDesc: q.Get("order") != "asc",
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = v
	}
	if ts, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		f.DateFrom = &ts
	}
	if ts, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		f.DateTo = &ts
	}
	for _, col := range filterColumns {
		if v := q.Get(col); v != "" {
			if f.Equals == nil {
				f.Equals = make(map[string]string)
			}
			f.Equals[col] = v
		}
	}
	return f
}
