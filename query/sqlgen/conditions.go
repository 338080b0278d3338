package sqlgen

import (
	"regexp"
	"strings"

	"github.com/satishbabariya/querykit/query/ast"
)

// temporalColumn matches columns whose empty value is stored as the null date.
var temporalColumn = regexp.MustCompile(`(?i)(valid|date|time|since|until|publish)`)

// Compiler renders conditions, literals and orderings. It never touches a
// connection; the only state it reads is the Scope passed in.
type Compiler struct {
	dialect Dialect
}

// NewCompiler creates a compiler for d.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{dialect: d}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() Dialect {
	return c.dialect
}

// Compile renders a condition set as a boolean expression. An empty set
// renders as the empty string.
func (c *Compiler) Compile(sc *Scope, set ast.ConditionSet) (string, error) {
	if set.IsEmpty() {
		return "", nil
	}
	comb := set.Combinator
	switch comb {
	case "":
		comb = ast.And
	case ast.And, ast.Or:
	default:
		return "", compileErrorf("", "unknown combinator %q", comb)
	}

	parts := make([]string, 0, len(set.Conditions))
	for _, cond := range set.Conditions {
		part, err := c.Condition(sc, cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " "+string(comb)+" "), nil
}

// CompileMap parses the legacy mapping format and compiles it.
func (c *Compiler) CompileMap(sc *Scope, spec map[string]any, comb ast.Combinator) (string, error) {
	set, err := ast.ParseConditions(spec, comb)
	if err != nil {
		return "", err
	}
	return c.Compile(sc, set)
}

// Condition renders a single predicate.
func (c *Compiler) Condition(sc *Scope, cond ast.Condition) (string, error) {
	if cond.Operator == ast.RawPredicate {
		return c.raw(cond)
	}
	if err := checkColumn(cond.Column); err != nil {
		return "", err
	}
	if cond.Negate && cond.Operator != ast.Between && cond.Operator != ast.SubqueryEqualsLastQuery {
		return "", compileErrorf(cond.Column, "negation is not supported for %s", cond.Operator)
	}

	switch cond.Operator {
	case ast.SubqueryEqualsLastQuery:
		return c.lastQuery(sc, cond)
	case ast.Between:
		return c.between(cond)
	case ast.In, ast.NotIn:
		return c.in(cond)
	case ast.Like, ast.NotLike, ast.Regexp, ast.RLike, ast.NotRLike:
		return c.pattern(cond)
	case ast.Equals, ast.NotEquals, ast.GreaterThan, ast.LessThan, ast.FunctionCall:
		return c.compare(cond)
	default:
		return "", compileErrorf(cond.Column, "unknown operator %q", cond.Operator)
	}
}

func checkColumn(column string) error {
	if strings.TrimSpace(column) == "" {
		return compileErrorf(column, "empty column")
	}
	if strings.ContainsAny(column, "'\";") || strings.Contains(column, "--") {
		return compileErrorf(column, "invalid column reference")
	}
	return nil
}

func (c *Compiler) raw(cond ast.Condition) (string, error) {
	var text string
	switch v := cond.Value.(type) {
	case ast.RawFunction:
		text = string(v)
	case ast.Scalar:
		text = v.String()
	default:
		return "", compileErrorf(cond.Column, "raw predicate holds %T", cond.Value)
	}
	if strings.TrimSpace(text) == "" {
		return "", compileErrorf(cond.Column, "empty raw predicate")
	}
	return text, nil
}

func (c *Compiler) lastQuery(sc *Scope, cond ast.Condition) (string, error) {
	last := sc.Last()
	if last == "" {
		return "", &CompileError{Column: cond.Column, Reason: "IN needs a previous statement", Err: ErrNoPreviousQuery}
	}
	op := "IN"
	if cond.Negate {
		op = "NOT IN"
	}
	return cond.Column + " " + op + " (" + last + ")", nil
}

func (c *Compiler) between(cond ast.Condition) (string, error) {
	r, ok := cond.Value.(ast.Range)
	if !ok {
		return "", compileErrorf(cond.Column, "BETWEEN expects a range, got %T", cond.Value)
	}
	bound := func(s *ast.Scalar) (string, error) {
		text, ok := s.Numeric()
		if !ok {
			return "", compileErrorf(cond.Column, "range bound %q is not numeric", s.String())
		}
		return text, nil
	}

	subject := cond.Column + " * 1.0"
	var expr string
	switch {
	case r.From != nil && r.To != nil:
		from, err := bound(r.From)
		if err != nil {
			return "", err
		}
		to, err := bound(r.To)
		if err != nil {
			return "", err
		}
		expr = "(" + subject + " BETWEEN " + from + " AND " + to + ")"
	case r.From != nil:
		from, err := bound(r.From)
		if err != nil {
			return "", err
		}
		expr = "(" + subject + " > " + from + ")"
	case r.To != nil:
		to, err := bound(r.To)
		if err != nil {
			return "", err
		}
		expr = "(" + subject + " < " + to + ")"
	default:
		return "", compileErrorf(cond.Column, "range without bounds")
	}

	if cond.Negate {
		return "NOT " + expr, nil
	}
	return expr, nil
}

func (c *Compiler) in(cond ast.Condition) (string, error) {
	list, ok := cond.Value.(ast.List)
	if !ok {
		return "", compileErrorf(cond.Column, "%s expects a list, got %T", cond.Operator, cond.Value)
	}
	if len(list) == 0 {
		return "", compileErrorf(cond.Column, "empty list")
	}
	items := make([]string, len(list))
	for i, s := range list {
		items[i] = c.scalar(s)
	}
	return cond.Column + " " + string(cond.Operator) + " (" + strings.Join(items, ",") + ")", nil
}

func (c *Compiler) pattern(cond ast.Condition) (string, error) {
	s, ok := cond.Value.(ast.Scalar)
	if !ok || s.IsNull() {
		return "", compileErrorf(cond.Column, "%s expects a string pattern", cond.Operator)
	}
	return cond.Column + " " + string(cond.Operator) + " " + Quote(c.dialect, s.String()), nil
}

func (c *Compiler) compare(cond ast.Condition) (string, error) {
	op := string(cond.Operator)
	if cond.Operator == ast.FunctionCall {
		op = "="
	}

	switch v := cond.Value.(type) {
	case ast.RawFunction:
		if strings.TrimSpace(string(v)) == "" {
			return "", compileErrorf(cond.Column, "empty function expression")
		}
		return cond.Column + " " + op + " " + string(v), nil
	case ast.Scalar:
		if cond.Operator == ast.FunctionCall {
			return "", compileErrorf(cond.Column, "function call expects a raw expression")
		}
		if v.IsNull() {
			switch cond.Operator {
			case ast.Equals:
				return cond.Column + " IS NULL", nil
			case ast.NotEquals:
				return cond.Column + " IS NOT NULL", nil
			}
			return "", compileErrorf(cond.Column, "cannot compare NULL with %s", op)
		}
		text := v.String()
		if text == "" && temporalColumn.MatchString(cond.Column) {
			text = c.dialect.NullDate()
		}
		return cond.Column + " " + op + " " + Quote(c.dialect, text), nil
	default:
		return "", compileErrorf(cond.Column, "cannot compare with %T", cond.Value)
	}
}

func (c *Compiler) scalar(s ast.Scalar) string {
	if s.IsNull() {
		return "NULL"
	}
	return Quote(c.dialect, s.String())
}

// Literal renders a row value for INSERT/UPDATE. Composite values must be
// encoded before they reach the builder.
func (c *Compiler) Literal(column string, v ast.Value) (string, error) {
	switch v := v.(type) {
	case ast.Scalar:
		return c.scalar(v), nil
	case ast.RawFunction:
		if strings.TrimSpace(string(v)) == "" {
			return "", compileErrorf(column, "empty function expression")
		}
		return string(v), nil
	case nil:
		return "NULL", nil
	case ast.Composite, ast.List:
		return "", compileErrorf(column, "%T must be encoded before building", v)
	default:
		return "", compileErrorf(column, "%T is not a storable value", v)
	}
}
