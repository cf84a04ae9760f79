package wire

import "fmt"

// TransportFailure reports an I/O failure from the underlying byte
// transport. Code/Reason mirror whatever the transport itself reported
// (e.g. a WebSocket close code and reason string); both may be zero/empty
// when the failure has no such detail (e.g. a dial timeout).
type TransportFailure struct {
	Code   int
	Reason string
}

func (e *TransportFailure) Error() string {
	return fmt.Sprintf("wire: transport failure (code=%d): %s", e.Code, e.Reason)
}

// ServerError wraps a Janus `{code, reason}` error body surfaced to a
// pending request's callback. The handle that produced it stays attached.
type ServerError struct {
	Code   int
	Reason string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("wire: server error %d: %s", e.Code, e.Reason)
}

// ErrCancelled is returned to every pending-request callback still outstanding
// when the owning session or handle is torn down.
var ErrCancelled = fmt.Errorf("wire: cancelled")

// ErrTimeout is returned when a pending request's deadline elapses with no
// matching reply.
var ErrTimeout = fmt.Errorf("wire: timeout")
