package sqlgen

import (
	"strings"

	"github.com/satishbabariya/querykit/query/ast"
)

// DefaultOrder is rendered when an ordering is empty or unparseable.
const DefaultOrder = "id ASC"

// Order renders the terms of an ORDER BY clause, without the keyword.
// Numeric terms get "+0" so numeric text sorts by value.
func (c *Compiler) Order(spec ast.OrderSpec) string {
	parts := make([]string, 0, len(spec))
	for _, term := range spec {
		if !term.Valid() {
			continue
		}
		col := term.Column
		if term.Numeric {
			col += "+0"
		}
		dir := "ASC"
		if term.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		return DefaultOrder
	}
	return strings.Join(parts, ", ")
}

// OrderString parses and renders the textual ordering form, e.g.
// "field_processo.num.desc,title".
func (c *Compiler) OrderString(spec string) string {
	return c.Order(ast.ParseOrder(spec))
}
