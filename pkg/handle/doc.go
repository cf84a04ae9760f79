// Package handle implements the Handle Client: the generic plugin-handle
// API (attach/detach/hangup) plus the Peer-Connection Session offer/answer/
// trickle negotiation state machine layered on top of it.
//
// A Client exposes an observer contract (the Hooks interface) that the
// VideoRoom Client implements, the same delegate-receives-every-event shape
// as the teacher's ProviderDelegate/RequestorDelegate in
// pkg/clusters/webrtc-transport/delegate.go, generalized from Matter's
// Offer/Answer/ICECandidates/End commands to the full Janus plugin-handle
// event surface.
package handle
