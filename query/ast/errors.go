package ast

import (
	"errors"
	"fmt"
)

// ErrCompile is matched by every CompileError.
var ErrCompile = errors.New("cannot compile condition")

// CompileError reports a malformed condition, ordering or row specification.
type CompileError struct {
	Column string
	Reason string
	// Err is an optional cause.
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("compile %q: %s", e.Column, e.Reason)
	}
	return "compile: " + e.Reason
}

// Is matches ErrCompile.
func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}

// Unwrap returns the cause, if any.
func (e *CompileError) Unwrap() error {
	return e.Err
}

func compileErrorf(column, format string, args ...any) error {
	return &CompileError{Column: column, Reason: fmt.Sprintf(format, args...)}
}
