package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller mistakes: missing context fields, a message
	// with neither text nor file, a malformed identifier.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced message that does not exist.
	ErrNotFound = errors.New("message not found")
	// ErrStoreUnavailable marks persistence failures. Callers must not assume
	// any document was created when they see it.
	ErrStoreUnavailable = errors.New("store unavailable")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
