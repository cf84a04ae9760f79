package transport

import "errors"

// Transport package errors.
var (
	// ErrNotOpen is returned by SendText when the transport is not in
	// StateOpen.
	ErrNotOpen = errors.New("transport: not open")

	// ErrAlreadyConnecting is returned by Connect when called while a
	// previous Connect call is still in flight.
	ErrAlreadyConnecting = errors.New("transport: connect already in progress")

	// ErrClosed is returned by Disconnect when the transport is already
	// closed.
	ErrClosed = errors.New("transport: already closed")
)
