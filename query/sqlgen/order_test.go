package sqlgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satishbabariya/querykit/query/ast"
	"github.com/satishbabariya/querykit/query/sqlgen"
)

func TestOrderString(t *testing.T) {
	c := sqlgen.NewCompiler(sqlgen.MySQL)

	tests := map[string]string{
		"field_processo.num.desc": "field_processo+0 DESC",
		"":                        "id ASC",
		"title":                   "title ASC",
		"a.title.desc,a.hits.num": "a.title DESC, a.hits+0 ASC",
		"created DESC, bad name!": "created DESC",
		"1; DROP TABLE x":         "id ASC",
		"ordering.desc.num":       "ordering+0 DESC",
	}
	for spec, want := range tests {
		t.Run(spec, func(t *testing.T) {
			assert.Equal(t, want, c.OrderString(spec))
		})
	}
}

func TestOrderSkipsInvalidTerms(t *testing.T) {
	c := sqlgen.NewCompiler(sqlgen.SQLite)

	got := c.Order(ast.OrderSpec{
		{Column: "x; --", Desc: true},
		{Column: "ordering", Numeric: true},
	})
	assert.Equal(t, "ordering+0 ASC", got)
	assert.Equal(t, sqlgen.DefaultOrder, c.Order(nil))
}
