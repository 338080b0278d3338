package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satishbabariya/querykit/query/ast"
)

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in   string
		want ast.OrderSpec
	}{
		{"", nil},
		{"title", ast.OrderSpec{{Column: "title"}}},
		{"field_processo.num.desc", ast.OrderSpec{{Column: "field_processo", Desc: true, Numeric: true}}},
		{"field_processo.desc.num", ast.OrderSpec{{Column: "field_processo", Desc: true, Numeric: true}}},
		{"a.created.desc", ast.OrderSpec{{Column: "a.created", Desc: true}}},
		{"created DESC, title", ast.OrderSpec{{Column: "created", Desc: true}, {Column: "title"}}},
		{"ordering.ASC", ast.OrderSpec{{Column: "ordering"}}},
		{"title; DROP TABLE x,hits.num", ast.OrderSpec{{Column: "hits", Numeric: true}}},
		{"a.b.c", nil},
		{" , ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ast.ParseOrder(tt.in))
		})
	}
}

func TestOrderTermValid(t *testing.T) {
	assert.True(t, ast.OrderTerm{Column: "t.col"}.Valid())
	assert.False(t, ast.OrderTerm{Column: "1col"}.Valid())
	assert.False(t, ast.OrderTerm{Column: ""}.Valid())
}
