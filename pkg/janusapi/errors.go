package janusapi

import "errors"

// API Client package errors.
var (
	// ErrNotConnected is returned by any Send* call made before Connect has
	// completed, or after the transport has failed or closed.
	ErrNotConnected = errors.New("janusapi: transport not connected")

	// ErrDuplicateTransaction is returned when a caller-supplied transaction
	// id collides with one already pending.
	ErrDuplicateTransaction = errors.New("janusapi: duplicate transaction id")
)
