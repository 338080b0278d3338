// Package ast defines the typed data model the SQL generator compiles:
// values, conditions, ordering, table references and rows.
package ast

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

var numberPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Value is a tagged union over everything a condition or row cell can hold.
// The concrete variants are Scalar, List, Range, RawFunction, Composite,
// Increment and LastQuery.
type Value interface {
	isValue()
}

// Scalar is a single string, number, bool or nil.
type Scalar struct {
	V any
}

// List is a sequence of scalars, used by IN / NOT IN.
type List []Scalar

// Range is a numeric interval. Either bound may be nil.
type Range struct {
	From *Scalar
	To   *Scalar
}

// RawFunction is trusted SQL text emitted without escaping, e.g. NOW().
type RawFunction string

// Composite is a structured value (map, slice, struct) that has to be
// encoded by the value codec before it can be stored.
type Composite struct {
	V any
}

// Increment marks an UPDATE column as "column = column + 1".
type Increment struct{}

// LastQuery refers to the text of the previously built statement.
type LastQuery struct{}

func (Scalar) isValue()      {}
func (List) isValue()        {}
func (Range) isValue()       {}
func (RawFunction) isValue() {}
func (Composite) isValue()   {}
func (Increment) isValue()   {}
func (LastQuery) isValue()   {}

// Null is the SQL NULL scalar.
var Null = Scalar{}

// NowToken is substituted with the dialect's current-time expression right
// before execution.
const NowToken = "{NOW}"

// Lit wraps v as a Scalar.
func Lit(v any) Scalar {
	return Scalar{V: v}
}

// Now returns the portable current-time expression.
func Now() RawFunction {
	return RawFunction(NowToken)
}

// Values builds a List from plain Go values.
func Values(vs ...any) List {
	l := make(List, len(vs))
	for i, v := range vs {
		l[i] = Scalar{V: v}
	}
	return l
}

// Closed returns a range with both bounds.
func Closed(from, to any) Range {
	f, t := Lit(from), Lit(to)
	return Range{From: &f, To: &t}
}

// From returns a range with only a lower bound.
func From(from any) Range {
	f := Lit(from)
	return Range{From: &f}
}

// To returns a range with only an upper bound.
func To(to any) Range {
	t := Lit(to)
	return Range{To: &t}
}

// IsNull reports whether the scalar holds no value.
func (s Scalar) IsNull() bool {
	return s.V == nil
}

// String renders the scalar as text. Nil renders as the empty string.
func (s Scalar) String() string {
	switch v := s.V.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Numeric reports whether the scalar is a number or a string holding one,
// and returns its canonical text.
func (s Scalar) Numeric() (string, bool) {
	switch s.V.(type) {
	case nil, bool:
		return "", false
	}
	text := s.String()
	if !numberPattern.MatchString(text) {
		return "", false
	}
	return text, true
}
