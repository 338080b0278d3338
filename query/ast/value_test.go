package ast_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satishbabariya/querykit/query/ast"
)

func TestScalarString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{[]byte("y"), "y"},
		{true, "1"},
		{false, "0"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint8(3), "3"},
		{1.5, "1.5"},
		{float32(0.25), "0.25"},
		{1e21, "1000000000000000000000"},
		{json.Number("12.50"), "12.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ast.Lit(tt.in).String(), "%#v", tt.in)
	}
}

func TestScalarNumeric(t *testing.T) {
	tests := []struct {
		in   any
		want string
		ok   bool
	}{
		{10, "10", true},
		{"20", "20", true},
		{"-1.5", "-1.5", true},
		{".5", ".5", true},
		{"1e3", "1e3", true},
		{"10 OR 1=1", "", false},
		{"abc", "", false},
		{true, "", false},
		{nil, "", false},
		{math.NaN(), "", false},
		{math.Inf(1), "", false},
	}
	for _, tt := range tests {
		got, ok := ast.Lit(tt.in).Numeric()
		assert.Equal(t, tt.ok, ok, "%#v", tt.in)
		assert.Equal(t, tt.want, got, "%#v", tt.in)
	}
}

func TestRowHelpers(t *testing.T) {
	row := ast.Row{}.Set("a", ast.Lit(1)).Set("b", ast.Lit(2)).Set("a", ast.Lit(3))
	assert.Equal(t, []string{"a", "b"}, row.Columns())

	v, ok := row.Get("a")
	assert.True(t, ok)
	assert.Equal(t, ast.Lit(3), v)

	_, ok = row.Get("missing")
	assert.False(t, ok)

	reordered := ast.Row{{Column: "b"}, {Column: "a"}}
	assert.True(t, row.SameColumns(reordered))
	assert.False(t, row.SameColumns(ast.Row{{Column: "a"}}))
	assert.False(t, row.SameColumns(ast.Row{{Column: "a"}, {Column: "c"}}))
}

func TestConditionSetWith(t *testing.T) {
	base := ast.Any(ast.Eq("a", 1))
	ext := base.With(ast.Eq("b", 2))

	assert.Len(t, base.Conditions, 1)
	assert.Len(t, ext.Conditions, 2)
	assert.Equal(t, ast.Or, ext.Combinator)
	assert.True(t, ast.Where().IsEmpty())
}
