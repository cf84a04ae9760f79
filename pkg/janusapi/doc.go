// Package janusapi encodes and decodes Janus WebSocket envelopes on top of
// a transport.Transport, correlating every outbound request with its reply
// by transaction id and demultiplexing unsolicited server events by sender
// (handle id) to a single registered listener — normally the Session
// Manager in pkg/session.
package janusapi
