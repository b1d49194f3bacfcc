package versions

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionNotFound is returned when a version does not exist or is archived
	// where an unarchived version is required.
	ErrVersionNotFound = errors.New("version not found")
	// ErrForbidden is returned when a version belongs to another user.
	ErrForbidden = errors.New("version belongs to another user")
)

// InputError reports an invalid field in a create or update request.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
