// Package transport defines the framed bidirectional text channel contract
// the rest of the module depends on, plus the typed observer-subscription
// primitive used everywhere an event source needs multiple independent
// listeners (Design Notes: "replace multi-inheritance observer mix-ins with
// a single typed subscription list per event source; subscribers are
// identified by a stable key so they can be removed idempotently").
//
// This package owns no socket. github.com/coderoom/janusrtc/pkg/jwebsocket
// provides the concrete WebSocket-backed implementation.
package transport
