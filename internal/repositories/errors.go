package repositories

import "errors"

var (
	// ErrNotFound indicates the requested record or edge does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness invariant.
	ErrConflict = errors.New("record conflict")
	// ErrForbidden indicates the acting user may not perform the operation.
	ErrForbidden = errors.New("operation forbidden")
	// ErrInvalidArgument indicates malformed input, such as self-friending.
	ErrInvalidArgument = errors.New("invalid argument")
)
