package ast

import (
	"regexp"
	"strings"
)

// OrderTerm is one ORDER BY column.
type OrderTerm struct {
	Column  string
	Desc    bool
	Numeric bool
}

// OrderSpec is an ordered list of terms.
type OrderSpec []OrderTerm

var orderColumnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ParseOrder reads the textual ordering form: comma separated columns, each
// optionally followed by ".num" and ".asc"/".desc", in either order.
// Unparseable terms are dropped.
func ParseOrder(spec string) OrderSpec {
	var out OrderSpec
	for _, part := range strings.Split(spec, ",") {
		if term, ok := parseOrderTerm(strings.TrimSpace(part)); ok {
			out = append(out, term)
		}
	}
	return out
}

func parseOrderTerm(part string) (OrderTerm, bool) {
	if part == "" {
		return OrderTerm{}, false
	}

	// "col DESC" is accepted as well as "col.desc"
	if fields := strings.Fields(part); len(fields) == 2 {
		part = fields[0] + "." + fields[1]
	}

	segments := strings.Split(part, ".")
	var term OrderTerm
modifiers:
	for len(segments) > 1 {
		switch strings.ToLower(segments[len(segments)-1]) {
		case "asc":
			term.Desc = false
		case "desc":
			term.Desc = true
		case "num":
			term.Numeric = true
		default:
			break modifiers
		}
		segments = segments[:len(segments)-1]
	}
	term.Column = strings.Join(segments, ".")
	if !orderColumnPattern.MatchString(term.Column) {
		return OrderTerm{}, false
	}
	return term, true
}

// Valid reports whether the term names a usable column.
func (t OrderTerm) Valid() bool {
	return orderColumnPattern.MatchString(t.Column)
}
