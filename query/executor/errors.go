package executor

import (
	"errors"
	"fmt"
)

// ErrDriver is matched by every DriverError.
var ErrDriver = errors.New("driver error")

// DriverError wraps an error returned by the backend. The backend's message
// is kept verbatim.
type DriverError struct {
	Op    string
	Query string
	Err   error
}

// Error implements the error interface.
func (e *DriverError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the backend error.
func (e *DriverError) Unwrap() error {
	return e.Err
}

// Is matches ErrDriver.
func (e *DriverError) Is(target error) bool {
	return target == ErrDriver
}
