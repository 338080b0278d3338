package schema

import (
	"errors"
	"fmt"
)

// ErrNoColumns is returned when a table resolves to an empty column list,
// usually because it does not exist.
var ErrNoColumns = errors.New("table has no resolvable columns")

// SchemaError wraps a failure to resolve a table's columns.
type SchemaError struct {
	Table string
	Err   error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema of %s: %v", e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Err
}
