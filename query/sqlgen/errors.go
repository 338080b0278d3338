package sqlgen

import (
	"errors"
	"fmt"

	"github.com/satishbabariya/querykit/query/ast"
)

// CompileError is raised for malformed conditions, orderings and rows.
type CompileError = ast.CompileError

var (
	// ErrCompile is matched by every CompileError.
	ErrCompile = ast.ErrCompile

	// ErrColumnMismatch is returned by InsertMany when rows do not share one
	// column set. Normalize the rows first to insert heterogeneous payloads.
	ErrColumnMismatch = errors.New("rows do not share one column set")

	// ErrNoPreviousQuery is the cause of the CompileError raised when a
	// LastQuery condition is compiled before any statement was built.
	ErrNoPreviousQuery = errors.New("no previously built statement")

	// ErrUnsupported is the cause of the CompileError raised when a statement
	// form has no equivalent in the builder's dialect.
	ErrUnsupported = errors.New("not supported by dialect")
)

func compileErrorf(column, format string, args ...any) error {
	return &CompileError{Column: column, Reason: fmt.Sprintf(format, args...)}
}

func unsupported(d Dialect, f Feature) error {
	return &CompileError{Reason: f.String() + " is not supported by " + d.Name(), Err: ErrUnsupported}
}
