package shared

import "math"

// DefaultPageSize applies when a list request omits the limit.
const DefaultPageSize = 20

// MaxPageSize caps caller-supplied limits.
const MaxPageSize = 100

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Current int `json:"current"`
	Limit   int `json:"limit"`
	Records int `json:"records"`
	Pages   int `json:"pages"`
}

// NewPagination computes pagination metadata. Page and limit are clamped
// to sane values; Pages is ceil(Records/Limit).
func NewPagination(page, limit, total int) Pagination {
	page, limit = ClampPage(page, limit)
	pages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{Current: page, Limit: limit, Records: total, Pages: pages}
}

// ClampPage normalizes caller-supplied page and limit: absent or
// non-positive values fall back to defaults, oversized limits are capped.
func ClampPage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Offset converts a (page, limit) pair into a row offset.
func Offset(page, limit int) int {
	page, limit = ClampPage(page, limit)
	return (page - 1) * limit
}
