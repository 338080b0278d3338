package schema

import (
	"context"
	"regexp"
	"strings"

	"github.com/satishbabariya/querykit/internal/debug"
	"github.com/satishbabariya/querykit/query/ast"
)

// Normalize returns row reshaped to exactly the table's columns, in schema
// order. Present columns keep their value; missing ones get the declared
// default or a zero value for their type. Auto-increment columns are left
// NULL so the backend assigns them. Columns unknown to the schema are dropped.
func (c *Cache) Normalize(ctx context.Context, table string, row ast.Row) (ast.Row, error) {
	cols, err := c.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	return normalize(cols, row, c.nullDate, table), nil
}

// NormalizeAll normalizes every row so they share one column list.
func (c *Cache) NormalizeAll(ctx context.Context, table string, rows ast.RowSet) (ast.RowSet, error) {
	cols, err := c.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make(ast.RowSet, len(rows))
	for i, row := range rows {
		out[i] = normalize(cols, row, c.nullDate, table)
	}
	return out, nil
}

func normalize(cols []ast.ColumnDescriptor, row ast.Row, nullDate, table string) ast.Row {
	out := make(ast.Row, 0, len(cols))
	known := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		known[col.Name] = struct{}{}
		if v, ok := row.Get(col.Name); ok {
			out = append(out, ast.Field{Column: col.Name, Value: v})
			continue
		}
		out = append(out, ast.Field{Column: col.Name, Value: Fill(col, nullDate)})
	}
	for _, f := range row {
		if _, ok := known[f.Column]; !ok {
			debug.Debug("dropping unknown column", "table", table, "column", f.Column)
		}
	}
	return out
}

// Fill returns the value a missing column is filled with.
func Fill(col ast.ColumnDescriptor, nullDate string) ast.Value {
	if col.AutoIncrement {
		return ast.Null
	}
	if v, ok := defaultValue(col.Default); ok {
		return v
	}
	return ZeroValue(col.Type, nullDate)
}

var (
	functionDefault = regexp.MustCompile(`(?i)^(current_timestamp|now|localtimestamp|current_date|current_time)(\(\d*\))?$`)
	castSuffix      = regexp.MustCompile(`::[a-z ]+(\[\])?$`)
)

func defaultValue(def *string) (ast.Value, bool) {
	if def == nil {
		return nil, false
	}
	text := castSuffix.ReplaceAllString(strings.TrimSpace(*def), "")
	switch {
	case strings.EqualFold(text, "NULL"):
		return nil, false
	case functionDefault.MatchString(text):
		return ast.Now(), true
	case len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'':
		return ast.Lit(strings.ReplaceAll(text[1:len(text)-1], "''", "'")), true
	}
	return ast.Lit(text), true
}

// ZeroValue maps a declared column type to the value stored when no default
// exists: 0 for integers, 0.0 for floating types, the null date for
// temporal types and the empty string otherwise.
func ZeroValue(declared, nullDate string) ast.Value {
	base := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexAny(base, "( "); i >= 0 {
		base = base[:i]
	}
	switch base {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint",
		"int2", "int4", "int8", "serial", "bigserial", "bit", "bool", "boolean", "year":
		return ast.Lit(int64(0))
	case "float", "double", "decimal", "numeric", "real", "float4", "float8", "dec", "fixed":
		return ast.Lit(0.0)
	case "datetime", "timestamp", "timestamptz":
		return ast.Lit(nullDate)
	case "date":
		if len(nullDate) >= 10 {
			return ast.Lit(nullDate[:10])
		}
		return ast.Lit(nullDate)
	}
	return ast.Lit("")
}
