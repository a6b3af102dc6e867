package directory

import "errors"

var (
	// ErrNotFound marks lookups for rows that do not exist.
	ErrNotFound = errors.New("directory: not found")
	// ErrConflict marks writes that collide with a uniqueness guarantee.
	ErrConflict = errors.New("directory: conflict")
	// ErrInvalidInput marks requests rejected before touching storage.
	ErrInvalidInput = errors.New("directory: invalid input")
	// ErrInvalidState marks operations applied to a row in the wrong
	// lifecycle state, such as cancelling an accepted invitation.
	ErrInvalidState = errors.New("directory: invalid state")
)
