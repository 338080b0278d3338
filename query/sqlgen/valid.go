package sqlgen

import (
	"strings"

	"github.com/satishbabariya/querykit/query/ast"
)

// Validity describes the "row is currently active" predicate. Only Until is
// required. Exceptions are raw predicates ORed with the whole window.
type Validity struct {
	Until      string
	Since      string
	Published  string
	Exceptions []string
}

// Valid renders the validity window. A column holding the null date counts
// as unbounded on that side.
func (b *Builder) Valid(v Validity) (string, error) {
	if err := checkColumn(v.Until); err != nil {
		return "", err
	}
	nullDate := Quote(b.Dialect(), b.Dialect().NullDate())

	parts := []string{"(" + v.Until + " > " + ast.NowToken + " OR " + v.Until + " = " + nullDate + ")"}
	if v.Since != "" {
		if err := checkColumn(v.Since); err != nil {
			return "", err
		}
		parts = append(parts, "("+v.Since+" < "+ast.NowToken+" OR "+v.Since+" = "+nullDate+")")
	}
	if v.Published != "" {
		if err := checkColumn(v.Published); err != nil {
			return "", err
		}
		parts = append(parts, v.Published+" = 1")
	}
	window := "(" + strings.Join(parts, " AND ") + ")"

	var exceptions []string
	for _, e := range v.Exceptions {
		if strings.TrimSpace(e) != "" {
			exceptions = append(exceptions, e)
		}
	}
	if len(exceptions) == 0 {
		return window, nil
	}
	return "(" + window + " OR " + strings.Join(exceptions, " OR ") + ")", nil
}

// ValidCondition wraps the validity window as a raw condition, ready to be
// appended to a ConditionSet.
func (b *Builder) ValidCondition(v Validity) (ast.Condition, error) {
	text, err := b.Valid(v)
	if err != nil {
		return ast.Condition{}, err
	}
	return ast.Raw(text), nil
}
