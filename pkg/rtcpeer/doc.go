// Package rtcpeer implements the handle.PeerConnection and
// handle.MediaSource collaborator interfaces over pion/webrtc/v4, the
// default runtime backing for pkg/handle's negotiation state machine. A
// caller is free to supply its own implementation instead (a different
// WebRTC engine, a test double); nothing in pkg/handle imports this
// package.
package rtcpeer
