package ast

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Sentinels of the legacy mapping format. They are only recognised here;
// everything downstream works on typed values.
const (
	ValidKey        = "@VALID"
	CurrentValue    = "@CURRENT"
	FunctionPrefix  = "FUNCTION:"
	RegexpPrefix    = "REGEXP:"
	RLikePrefix     = "RLIKE:"
	IncrementMarker = "++"
	Wildcard        = "%"
)

// ParseConditions converts the legacy mapping format into a ConditionSet.
// Keys are visited in sorted order so the rendered SQL is deterministic.
func ParseConditions(spec map[string]any, comb Combinator) (ConditionSet, error) {
	if comb == "" {
		comb = And
	}
	set := ConditionSet{Combinator: comb}
	for _, key := range sortedKeys(spec) {
		cond, err := ParseCondition(key, spec[key])
		if err != nil {
			return ConditionSet{}, err
		}
		set.Conditions = append(set.Conditions, cond)
	}
	return set, nil
}

type sigils struct {
	negate  bool
	less    bool
	greater bool
}

func (s sigils) compares() bool {
	return s.less || s.greater
}

func splitKey(key string) (string, sigils, error) {
	var s sigils
	col := strings.TrimSpace(key)
	if strings.HasPrefix(col, "!") {
		s.negate = true
		col = col[1:]
	}
	for {
		switch {
		case strings.HasPrefix(col, "<"):
			s.less, col = true, col[1:]
		case strings.HasSuffix(col, "<"):
			s.less, col = true, col[:len(col)-1]
		case strings.HasPrefix(col, ">"):
			s.greater, col = true, col[1:]
		case strings.HasSuffix(col, ">"):
			s.greater, col = true, col[:len(col)-1]
		default:
			col = strings.TrimSpace(col)
			if col == "" {
				return "", s, compileErrorf(key, "empty column")
			}
			if s.less && s.greater {
				return "", s, compileErrorf(key, "both < and > given")
			}
			if s.negate && s.compares() {
				return "", s, compileErrorf(key, "negation cannot be combined with a comparison")
			}
			return col, s, nil
		}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseCondition resolves a single key/value pair of the legacy format. The
// rules are applied in this order: @VALID key, @CURRENT value, numeric key,
// range, list, wildcard, REGEXP:/RLIKE:, FUNCTION:, plain comparison.
func ParseCondition(key string, raw any) (Condition, error) {
	if key == ValidKey {
		text, ok := raw.(string)
		if !ok {
			if fn, isFn := raw.(RawFunction); isFn {
				text, ok = string(fn), true
			}
		}
		if !ok || strings.TrimSpace(text) == "" {
			return Condition{}, compileErrorf(key, "expects rendered SQL text")
		}
		return Raw(text), nil
	}

	if isCurrent(raw) {
		col, s, err := splitKey(key)
		if err != nil {
			return Condition{}, err
		}
		if s.compares() {
			return Condition{}, compileErrorf(key, "comparison with %s", CurrentValue)
		}
		return Condition{Column: col, Operator: SubqueryEqualsLastQuery, Value: LastQuery{}, Negate: s.negate}, nil
	}

	if isDigits(key) {
		text, ok := raw.(string)
		if !ok {
			return Condition{}, compileErrorf(key, "numeric key expects SQL text")
		}
		return Raw(text), nil
	}

	col, s, err := splitKey(key)
	if err != nil {
		return Condition{}, err
	}

	if r, ok, err := asRange(raw); err != nil {
		return Condition{}, &CompileError{Column: col, Reason: err.Error()}
	} else if ok {
		if s.compares() {
			return Condition{}, compileErrorf(col, "comparison with a range")
		}
		return Condition{Column: col, Operator: Between, Value: r, Negate: s.negate}, nil
	}

	if l, ok, err := asList(raw); err != nil {
		return Condition{}, &CompileError{Column: col, Reason: err.Error()}
	} else if ok {
		if s.compares() {
			return Condition{}, compileErrorf(col, "comparison with a list")
		}
		op := In
		if s.negate {
			op = NotIn
		}
		return Condition{Column: col, Operator: op, Value: l}, nil
	}

	switch v := raw.(type) {
	case string:
		return parseString(col, s, v)
	case Scalar:
		return comparison(col, s, v), nil
	case RawFunction:
		return function(col, s, v), nil
	case Composite, Increment:
		return Condition{}, compileErrorf(col, "%T is not a condition value", raw)
	}

	if !isScalar(raw) {
		return Condition{}, compileErrorf(col, "unsupported value of type %T", raw)
	}
	return comparison(col, s, Lit(raw)), nil
}

func isCurrent(raw any) bool {
	switch v := raw.(type) {
	case string:
		return v == CurrentValue
	case LastQuery:
		return true
	}
	return false
}

func parseString(col string, s sigils, v string) (Condition, error) {
	switch {
	case strings.Contains(v, Wildcard):
		if s.compares() {
			return Condition{}, compileErrorf(col, "comparison with a LIKE pattern")
		}
		op := Like
		if s.negate {
			op = NotLike
		}
		return Condition{Column: col, Operator: op, Value: Lit(v)}, nil
	case strings.HasPrefix(v, RegexpPrefix):
		if s.negate || s.compares() {
			return Condition{}, compileErrorf(col, "REGEXP takes no sigils")
		}
		return Condition{Column: col, Operator: Regexp, Value: Lit(strings.TrimPrefix(v, RegexpPrefix))}, nil
	case strings.HasPrefix(v, RLikePrefix):
		if s.compares() {
			return Condition{}, compileErrorf(col, "comparison with an RLIKE pattern")
		}
		op := RLike
		if s.negate {
			op = NotRLike
		}
		return Condition{Column: col, Operator: op, Value: Lit(strings.TrimPrefix(v, RLikePrefix))}, nil
	case strings.HasPrefix(v, FunctionPrefix):
		return function(col, s, functionValue(v)), nil
	}
	return comparison(col, s, Lit(v)), nil
}

func functionValue(v string) RawFunction {
	expr := strings.TrimSpace(strings.TrimPrefix(v, FunctionPrefix))
	if strings.EqualFold(expr, "now") || strings.EqualFold(expr, "now()") {
		return Now()
	}
	return RawFunction(expr)
}

func function(col string, s sigils, fn RawFunction) Condition {
	c := comparison(col, s, nil)
	if c.Operator == Equals {
		c.Operator = FunctionCall
	}
	c.Value = fn
	return c
}

func comparison(col string, s sigils, v Value) Condition {
	op := Equals
	switch {
	case s.negate:
		op = NotEquals
	case s.less:
		op = LessThan
	case s.greater:
		op = GreaterThan
	}
	return Condition{Column: col, Operator: op, Value: v}
}

func asRange(raw any) (Range, bool, error) {
	var r Range
	switch v := raw.(type) {
	case Range:
		r = v
	case *Range:
		if v == nil {
			return Range{}, false, nil
		}
		r = *v
	case map[string]any:
		for k := range v {
			if k != "from" && k != "to" {
				return Range{}, false, fmt.Errorf("range has unexpected key %q", k)
			}
		}
		if f, ok := v["from"]; ok && f != nil {
			if !isScalar(f) {
				return Range{}, false, fmt.Errorf("range bound of type %T", f)
			}
			s := Lit(f)
			r.From = &s
		}
		if t, ok := v["to"]; ok && t != nil {
			if !isScalar(t) {
				return Range{}, false, fmt.Errorf("range bound of type %T", t)
			}
			s := Lit(t)
			r.To = &s
		}
	default:
		return Range{}, false, nil
	}
	if r.From == nil && r.To == nil {
		return Range{}, false, fmt.Errorf("range without bounds")
	}
	return r, true, nil
}

func asList(raw any) (List, bool, error) {
	switch v := raw.(type) {
	case List:
		return v, true, nil
	case []Scalar:
		return List(v), true, nil
	case nil, string, []byte:
		return nil, false, nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false, nil
	}
	l := make(List, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if s, ok := elem.(Scalar); ok {
			l = append(l, s)
			continue
		}
		if !isScalar(elem) {
			return nil, false, fmt.Errorf("list element of type %T", elem)
		}
		l = append(l, Lit(elem))
	}
	return l, true, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, []byte, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// ParseRow converts a legacy row mapping into a Row with sorted columns.
func ParseRow(spec map[string]any) Row {
	row := make(Row, 0, len(spec))
	for _, key := range sortedKeys(spec) {
		row = append(row, Field{Column: key, Value: ParseValue(spec[key])})
	}
	return row
}

// ParseRows converts a list of legacy row mappings.
func ParseRows(specs []map[string]any) RowSet {
	rows := make(RowSet, len(specs))
	for i, spec := range specs {
		rows[i] = ParseRow(spec)
	}
	return rows
}

// ParseValue converts a single legacy row cell.
func ParseValue(raw any) Value {
	switch v := raw.(type) {
	case Value:
		return v
	case string:
		switch {
		case v == IncrementMarker:
			return Increment{}
		case strings.HasPrefix(v, FunctionPrefix):
			return functionValue(v)
		}
		return Lit(v)
	}
	if isScalar(raw) {
		return Lit(raw)
	}
	return Composite{V: raw}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
