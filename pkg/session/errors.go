package session

import "errors"

// Session Manager package errors.
var (
	// ErrNotUp is returned by any operation that requires an established
	// session (Up) while the Manager is in any other state.
	ErrNotUp = errors.New("session: not up")

	// ErrAlreadyStarting is returned by Start when a session creation or
	// reconnect attempt is already in flight.
	ErrAlreadyStarting = errors.New("session: already starting")

	// ErrClosed is returned by a second Close, and ends a connect sequence
	// that is still retrying when Close is called.
	ErrClosed = errors.New("session: closed")

	// ErrDuplicateHandle is returned by the handle registry when a handle id
	// is already registered.
	ErrDuplicateHandle = errors.New("session: duplicate handle id")

	// ErrIllegalTransition is returned by the state machine when asked to
	// move to a state unreachable from the current one.
	ErrIllegalTransition = errors.New("session: illegal state transition")
)
