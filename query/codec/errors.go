package codec

import (
	"errors"
	"fmt"
)

// ErrCodec is matched by every CodecError.
var ErrCodec = errors.New("codec error")

// CodecError reports a value that could not be encoded or decoded.
type CodecError struct {
	Scheme string
	Err    error
}

// Error implements the error interface.
func (e *CodecError) Error() string {
	if e.Scheme == "" {
		return fmt.Sprintf("codec: %v", e.Err)
	}
	return fmt.Sprintf("codec %s: %v", e.Scheme, e.Err)
}

// Unwrap returns the underlying error.
func (e *CodecError) Unwrap() error {
	return e.Err
}

// Is matches ErrCodec.
func (e *CodecError) Is(target error) bool {
	return target == ErrCodec
}
