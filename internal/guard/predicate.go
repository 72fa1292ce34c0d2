package guard

import (
	"fmt"
	"strings"
)

// Predicate accumulates WHERE conditions with positional arguments.
// Conditions are written with ? placeholders and rewritten to $n when the
// final SQL is rendered, so callers never track argument numbering.
type Predicate struct {
	conds []string
	args  []any
}

// And appends a condition. Each ? in expr consumes one argument.
func (p *Predicate) And(expr string, args ...any) {
	p.conds = append(p.conds, expr)
	p.args = append(p.args, args...)
}

// Args returns the accumulated arguments in placeholder order.
func (p *Predicate) Args() []any {
	return p.args
}

// Clause renders the accumulated conditions as a WHERE clause with $n
// placeholders, or an empty string when no condition was added.
func (p *Predicate) Clause() string {
	if len(p.conds) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("WHERE ")
	n := 0
	for i, cond := range p.conds {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		for _, ch := range cond {
			if ch == '?' {
				n++
				fmt.Fprintf(&sb, "$%d", n)
				continue
			}
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// placeholders returns how many arguments the predicate consumed.
func (p *Predicate) placeholders() int {
	return len(p.args)
}
