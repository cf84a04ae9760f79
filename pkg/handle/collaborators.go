package handle

import "github.com/coderoom/janusrtc/pkg/wire"

// TransceiverDirection mirrors the unified-plan direction values a
// PeerConnection transceiver can hold, spec §4.4.3.
type TransceiverDirection int

const (
	DirectionInactive TransceiverDirection = iota
	DirectionSendOnly
	DirectionRecvOnly
	DirectionSendRecv
)

// String returns a human-readable direction name.
func (d TransceiverDirection) String() string {
	switch d {
	case DirectionSendOnly:
		return "sendonly"
	case DirectionRecvOnly:
		return "recvonly"
	case DirectionSendRecv:
		return "sendrecv"
	default:
		return "inactive"
	}
}

// ResolveDirection implements the truth table in spec §4.4.3:
// (send,recv) -> direction.
func ResolveDirection(send, recv bool) TransceiverDirection {
	switch {
	case send && recv:
		return DirectionSendRecv
	case send:
		return DirectionSendOnly
	case recv:
		return DirectionRecvOnly
	default:
		return DirectionInactive
	}
}

// Track is a single local or remote media track.
type Track interface {
	Kind() string // "audio" or "video"
	ID() string
}

// EncodingLayer describes one simulcast encoding on an outgoing video
// sender, spec §4.4.4.
type EncodingLayer struct {
	RID                   string
	MaxBitrate            int
	ScaleResolutionDownBy float64
}

// Sender is the handle a PeerConnection hands back for an outgoing track,
// used to replace the track in place (unified-plan renegotiation) or to
// attach simulcast encodings.
type Sender interface {
	Track() Track
	ReplaceTrack(track Track) error
	SetEncodings(layers []EncodingLayer) error
}

// Transceiver is a bidirectional audio or video leg of a PeerConnection.
type Transceiver interface {
	Kind() string
	Mid() string
	Direction() TransceiverDirection
	SetDirection(TransceiverDirection) error
	Sender() Sender
}

// DataChannel is a single SCTP data channel, adopted either because this
// side created it or because the peer created one under the same label.
type DataChannel interface {
	Label() string
	Send(data []byte) error
	Close() error
}

// OfferAnswerOptions carries the legacy offer-to-receive flags used when
// unified-plan transceivers are unavailable, spec §4.4.3.
type OfferAnswerOptions struct {
	OfferToReceiveAudio bool
	OfferToReceiveVideo bool
}

// ICEConnectionState mirrors the peer connection's ICE state machine.
type ICEConnectionState int

const (
	ICEStateNew ICEConnectionState = iota
	ICEStateChecking
	ICEStateConnected
	ICEStateCompleted
	ICEStateFailed
	ICEStateDisconnected
	ICEStateClosed
)

// String returns a human-readable ICE state name.
func (s ICEConnectionState) String() string {
	switch s {
	case ICEStateChecking:
		return "checking"
	case ICEStateConnected:
		return "connected"
	case ICEStateCompleted:
		return "completed"
	case ICEStateFailed:
		return "failed"
	case ICEStateDisconnected:
		return "disconnected"
	case ICEStateClosed:
		return "closed"
	default:
		return "new"
	}
}

// PeerConnectionObserver receives events from a PeerConnection. Negotiation
// implements this and translates each callback into the Hooks contract.
type PeerConnectionObserver interface {
	OnICEConnectionStateChange(state ICEConnectionState)

	// OnICECandidate is called once per gathered local candidate, and once
	// more with a nil candidate to signal end-of-candidates.
	OnICECandidate(candidate *wire.CandidateWire)

	// OnICEGatheringDone fires when local gathering completes. Used to
	// release a withheld non-trickle SDP (spec §4.4.2).
	OnICEGatheringDone()

	OnTrack(track Track, mid string)
	OnTrackRemoved(track Track, mid string)
	OnDataChannel(dc DataChannel)
}

// PeerConnection is the collaborator interface spec §6 names. pkg/rtcpeer
// ships the default pion/webrtc-backed implementation; Negotiation depends
// only on this interface, the same externally-injected-PeerConnection
// contract the teacher's examples/webrtc-transport/device.go documents.
type PeerConnection interface {
	CreateOffer(opts OfferAnswerOptions) (sdp string, err error)
	CreateAnswer(opts OfferAnswerOptions) (sdp string, err error)
	SetLocalDescription(typ wire.JSEPType, sdp string) error
	SetRemoteDescription(typ wire.JSEPType, sdp string) error

	// AddICECandidate with a nil candidate signals end-of-candidates.
	AddICECandidate(candidate *wire.CandidateWire) error

	AddTrack(track Track) (Sender, error)
	RemoveTrack(sender Sender) error
	GetTransceivers() []Transceiver
	AddTransceiver(kind string, direction TransceiverDirection) (Transceiver, error)
	CreateDataChannel(label string) (DataChannel, error)

	SetObserver(observer PeerConnectionObserver)
	Close() error
}

// MediaSource creates local tracks and streams, spec §6.
type MediaSource interface {
	CreateAudioTrack() (Track, error)
	CreateVideoTrack() (Track, error)
	CreateLocalMediaStream() (audio Track, video Track, err error)
}
