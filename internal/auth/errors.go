package auth

import "errors"

var (
	// ErrUnauthenticated means no identity could be built from the supplied
	// credential. Surfaced separately from ErrForbidden so clients can route
	// to a login flow instead of showing a permission error.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrForbidden means the resolved permission set does not satisfy the
	// declared requirement.
	ErrForbidden = errors.New("auth: forbidden")

	// ErrInvalidToken indicates the bearer token failed verification.
	ErrInvalidToken = errors.New("auth: invalid token")
)
