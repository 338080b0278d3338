package sqlgen

// Scope carries the request-scoped state of a builder: the text of the last
// statement it built, which LastQuery conditions refer to.
// A Scope belongs to one request and is not safe for concurrent use.
type Scope struct {
	last string
}

// Last returns the previously built statement. A nil Scope has none.
func (s *Scope) Last() string {
	if s == nil {
		return ""
	}
	return s.last
}

// Remember records a built statement.
func (s *Scope) Remember(statement string) {
	if s != nil {
		s.last = statement
	}
}
