package ast

// Operator is the comparison a Condition renders.
type Operator string

const (
	Equals                  Operator = "="
	NotEquals               Operator = "!="
	Like                    Operator = "LIKE"
	NotLike                 Operator = "NOT LIKE"
	Regexp                  Operator = "REGEXP"
	RLike                   Operator = "RLIKE"
	NotRLike                Operator = "NOT RLIKE"
	Between                 Operator = "BETWEEN"
	GreaterThan             Operator = ">"
	LessThan                Operator = "<"
	In                      Operator = "IN"
	NotIn                   Operator = "NOT IN"
	RawPredicate            Operator = "RAW"
	SubqueryEqualsLastQuery Operator = "IN LAST"
	FunctionCall            Operator = "FUNCTION"
)

// Combinator joins the conditions of a set.
type Combinator string

const (
	And Combinator = "AND"
	Or  Combinator = "OR"
)

// Condition is a single predicate. Negate only applies to Between and
// SubqueryEqualsLastQuery; every other operator has an explicit negated form.
type Condition struct {
	Column   string
	Operator Operator
	Value    Value
	Negate   bool
}

// ConditionSet is a flat list of conditions sharing one combinator.
type ConditionSet struct {
	Conditions []Condition
	Combinator Combinator
}

// Where returns an AND set over conds.
func Where(conds ...Condition) ConditionSet {
	return ConditionSet{Conditions: conds, Combinator: And}
}

// Any returns an OR set over conds.
func Any(conds ...Condition) ConditionSet {
	return ConditionSet{Conditions: conds, Combinator: Or}
}

// Eq is shorthand for column = value.
func Eq(column string, v any) Condition {
	return Condition{Column: column, Operator: Equals, Value: Lit(v)}
}

// Raw wraps pre-rendered boolean SQL as a condition.
func Raw(predicate string) Condition {
	return Condition{Operator: RawPredicate, Value: RawFunction(predicate)}
}

// IsEmpty reports whether the set has no conditions.
func (s ConditionSet) IsEmpty() bool {
	return len(s.Conditions) == 0
}

// With appends conditions and returns the extended set.
func (s ConditionSet) With(conds ...Condition) ConditionSet {
	out := make([]Condition, 0, len(s.Conditions)+len(conds))
	out = append(out, s.Conditions...)
	out = append(out, conds...)
	return ConditionSet{Conditions: out, Combinator: s.Combinator}
}
