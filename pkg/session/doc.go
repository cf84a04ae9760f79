// Package session implements the Session Manager: the component that owns
// one Janus session id, keeps it alive with periodic keepalives, tracks the
// handles attached under it, and reconnects the session after a transport
// failure.
//
// The Manager sits directly on top of pkg/janusapi and is the normal
// implementation of janusapi.EventListener — it demultiplexes unsolicited
// envelopes to the handle they target and forwards transport lifecycle
// notifications into its own state machine.
package session
