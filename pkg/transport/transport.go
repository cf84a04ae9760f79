package transport

import "context"

// State is the connection lifecycle of a Transport.
type State int

const (
	// StateIdle is the state before Connect has been called.
	StateIdle State = iota

	// StateConnecting is set for the duration of a Connect call.
	StateConnecting

	// StateOpen is set once the opened event has fired.
	StateOpen

	// StateClosed is set once the closed or failed event has fired.
	StateClosed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Observer receives the four events a Transport can emit. Implementations
// must not block; slow work belongs on the event loop the caller owns.
type Observer interface {
	// OnOpened fires once the connection is established.
	OnOpened()

	// OnClosed fires on an orderly local shutdown (Disconnect). A close
	// initiated by the server is reported through OnFailed, carrying the
	// close code and text.
	OnClosed()

	// OnFailed fires on any I/O failure. code/reason mirror whatever detail
	// the underlying transport provides.
	OnFailed(code int, reason string)

	// OnTextMessage fires once per inbound text frame, in receive order.
	OnTextMessage(payload []byte)
}

// Transport is a single connection to one URL. No framing concerns leak
// upward: callers send and receive whole text payloads. Ping/pong is an
// internal keepalive only — timeouts surface as OnFailed, never as a silent
// retry (reconnection is the Session Manager's decision, not the
// Transport's).
type Transport interface {
	// Connect dials url and blocks until the connection is established or
	// the context is cancelled. OnOpened fires on success; OnFailed fires
	// (and an error is also returned) on failure.
	Connect(ctx context.Context, url string) error

	// Disconnect closes the connection. OnClosed fires once the underlying
	// socket is torn down. Disconnect on an already-closed Transport has no
	// effect and returns ErrClosed.
	Disconnect() error

	// SendText queues a text payload for transmission. Returns an error
	// immediately if the transport is not open; does not block on network
	// I/O beyond handing off to the write queue.
	SendText(payload []byte) error

	// Subscribe registers an Observer under key, replacing any observer
	// previously registered under the same key. Subscribe is idempotent:
	// subscribing the same key twice leaves exactly one observer
	// registered.
	Subscribe(key string, observer Observer)

	// Unsubscribe removes the observer registered under key, if any.
	Unsubscribe(key string)

	// State returns the current connection state.
	State() State
}
