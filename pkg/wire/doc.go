// Package wire defines the JSON envelope shapes exchanged with a Janus
// WebSocket gateway, plus the Codec collaborator interface for envelope
// (de)serialization. The PeerConnection and MediaSource collaborator
// interfaces live in pkg/handle.
//
// Nothing in this package dials a network or owns a goroutine; it is the
// shared vocabulary that pkg/janusapi, pkg/session, pkg/handle,
// pkg/rtcpeer and pkg/videoroom all speak.
package wire
