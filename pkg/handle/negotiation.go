package handle

import (
	"sync"
	"time"

	"github.com/coderoom/janusrtc/pkg/wire"
)

// pcState is the Peer-Connection Session lifecycle, spec §4.4.2.
type pcState int

const (
	pcFresh pcState = iota
	pcNegotiating
	pcStable
	pcRenegotiating
	pcClosed
)

func (s pcState) String() string {
	switch s {
	case pcNegotiating:
		return "negotiating"
	case pcStable:
		return "stable"
	case pcRenegotiating:
		return "renegotiating"
	case pcClosed:
		return "closed"
	default:
		return "fresh"
	}
}

// Simulcast encoding layers, spec §4.4.4.
var simulcastLayers = []EncodingLayer{
	{RID: "h", MaxBitrate: 900_000, ScaleResolutionDownBy: 1},
	{RID: "m", MaxBitrate: 300_000, ScaleResolutionDownBy: 2},
	{RID: "l", MaxBitrate: 100_000, ScaleResolutionDownBy: 4},
}

// DefaultDTMFDuration and DefaultDTMFInterToneGap are the spec §4.4.5
// defaults applied when a SendDTMF caller leaves them zero.
const (
	DefaultDTMFDuration     = 500 * time.Millisecond
	DefaultDTMFInterToneGap = 50 * time.Millisecond
)

// Stoppable is an optional capability of a Track created by a MediaSource,
// letting Negotiation release its underlying capture device on hangup.
// Externally supplied tracks need not implement it.
type Stoppable interface {
	Stop()
}

// DTMFSender is an optional capability of a Sender carrying an audio track,
// realized by pion/webrtc's DTMF sender in pkg/rtcpeer.
type DTMFSender interface {
	InsertDTMF(tones string, duration, interToneGap time.Duration) error
}

// TrickleSink receives outbound ICE candidates and the end-of-candidates
// marker for delivery to the Janus gateway. A non-trickle complete SDP does
// not pass through it; it reaches the CreateOffer/CreateAnswer callback.
// pkg/handle.Client implements this over janusapi.Client.SendTrickle.
type TrickleSink interface {
	SendTrickle(candidate wire.CandidateWire)
}

// Negotiation drives one Peer-Connection Session's offer/answer/trickle
// state machine over an injected PeerConnection, spec §4.4.2-§4.4.5.
type Negotiation struct {
	pc      PeerConnection
	sink    TrickleSink
	hooks   Hooks
	trickle bool

	mu            sync.Mutex
	state         pcState
	localSDP      string
	remoteSDP     string
	remoteApplied bool
	iceDone       bool
	remoteBuffer  []wire.CandidateWire
	pendingOffer  *pendingSDP
	localTracks   map[string]bool // track id -> external
	dataChannels  map[string]DataChannel
}

type pendingSDP struct {
	sdp string
	cb  func(sdp string, err error)
}

// NewNegotiation wires pc as the active Peer-Connection Session. pc's
// observer is set to this Negotiation.
func NewNegotiation(pc PeerConnection, sink TrickleSink, hooks Hooks, trickle bool) *Negotiation {
	n := &Negotiation{
		pc:           pc,
		sink:         sink,
		hooks:        hooks,
		trickle:      trickle,
		state:        pcFresh,
		localTracks:  make(map[string]bool),
		dataChannels: make(map[string]DataChannel),
	}
	pc.SetObserver(n)
	return n
}

// State reports the current Peer-Connection Session state.
func (n *Negotiation) State() pcState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// CreateOffer applies resolved, builds an SDP offer, and stores it as the
// local description. cb fires immediately when trickle is enabled, or once
// local ICE gathering completes otherwise (spec §4.4.2).
func (n *Negotiation) CreateOffer(resolved ResolvedMediaConfig, opts OfferAnswerOptions, cb func(sdp string, err error)) error {
	n.mu.Lock()
	if n.state != pcFresh && n.state != pcStable {
		n.mu.Unlock()
		return &NegotiationFailure{Stage: "create_offer", Err: ErrIllegalNegotiationState}
	}
	from := n.state
	n.mu.Unlock()

	if err := n.applyMediaConfig(resolved); err != nil {
		return &NegotiationFailure{Stage: "create_offer", Err: err}
	}

	sdp, err := n.pc.CreateOffer(opts)
	if err != nil {
		return &NegotiationFailure{Stage: "create_offer", Err: err}
	}
	if err := n.pc.SetLocalDescription(wire.JSEPOffer, sdp); err != nil {
		return &NegotiationFailure{Stage: "create_offer", Err: err}
	}

	n.mu.Lock()
	n.localSDP = sdp
	next := pcNegotiating
	if from == pcStable {
		next = pcRenegotiating
	}
	n.state = next
	n.deliverOrDefer(sdp, cb)
	n.mu.Unlock()
	return nil
}

// CreateAnswer mirrors CreateOffer after ApplyRemote has applied the
// remote offer.
func (n *Negotiation) CreateAnswer(resolved ResolvedMediaConfig, opts OfferAnswerOptions, cb func(sdp string, err error)) error {
	n.mu.Lock()
	if n.state != pcNegotiating && n.state != pcRenegotiating {
		n.mu.Unlock()
		return &NegotiationFailure{Stage: "create_answer", Err: ErrIllegalNegotiationState}
	}
	n.mu.Unlock()

	if err := n.applyMediaConfig(resolved); err != nil {
		return &NegotiationFailure{Stage: "create_answer", Err: err}
	}

	sdp, err := n.pc.CreateAnswer(opts)
	if err != nil {
		return &NegotiationFailure{Stage: "create_answer", Err: err}
	}
	if err := n.pc.SetLocalDescription(wire.JSEPAnswer, sdp); err != nil {
		return &NegotiationFailure{Stage: "create_answer", Err: err}
	}

	n.mu.Lock()
	n.localSDP = sdp
	n.deliverOrDefer(sdp, cb)
	n.mu.Unlock()
	return nil
}

// deliverOrDefer must be called with n.mu held.
func (n *Negotiation) deliverOrDefer(sdp string, cb func(sdp string, err error)) {
	if n.trickle || n.iceDone {
		cb(sdp, nil)
		return
	}
	n.pendingOffer = &pendingSDP{sdp: sdp, cb: cb}
}

// ApplyRemote sets the remote description and drains any buffered trickle
// candidates that arrived before it, spec §4.4.2.
func (n *Negotiation) ApplyRemote(typ wire.JSEPType, sdp string) error {
	if err := n.pc.SetRemoteDescription(typ, sdp); err != nil {
		return &NegotiationFailure{Stage: "set_remote_description", Err: err}
	}

	n.mu.Lock()
	n.remoteSDP = sdp
	n.remoteApplied = true
	if typ == wire.JSEPOffer && n.state == pcFresh {
		n.state = pcNegotiating
	} else if typ == wire.JSEPOffer && n.state == pcStable {
		n.state = pcRenegotiating
	} else if typ == wire.JSEPAnswer {
		n.state = pcStable
	}
	buffered := n.remoteBuffer
	n.remoteBuffer = nil
	n.mu.Unlock()

	for _, c := range buffered {
		if err := n.injectRemoteCandidate(c); err != nil && n.hooks != nil {
			n.hooks.OnError(err.Error())
		}
	}
	return nil
}

func (n *Negotiation) injectRemoteCandidate(c wire.CandidateWire) error {
	if c.Completed {
		return n.pc.AddICECandidate(nil)
	}
	candidate := c
	return n.pc.AddICECandidate(&candidate)
}

// OnRemoteTrickle handles one inbound `trickle` envelope: inject if the
// remote description is already applied, otherwise buffer it.
func (n *Negotiation) OnRemoteTrickle(candidate wire.CandidateWire) {
	n.mu.Lock()
	if !n.remoteApplied {
		n.remoteBuffer = append(n.remoteBuffer, candidate)
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	if err := n.injectRemoteCandidate(candidate); err != nil && n.hooks != nil {
		n.hooks.OnError(err.Error())
	}
}

// Hangup tears the Peer-Connection Session down: stops every non-external
// local track, closes the peer, clears buffered state, and emits
// on_cleanup, spec §4.4.2.
func (n *Negotiation) Hangup() {
	n.mu.Lock()
	if n.state == pcClosed {
		n.mu.Unlock()
		return
	}
	n.state = pcClosed
	tracks := n.localTracks
	n.localTracks = make(map[string]bool)
	n.remoteBuffer = nil
	n.localSDP = ""
	n.remoteSDP = ""
	n.remoteApplied = false
	n.iceDone = false
	n.pendingOffer = nil
	channels := n.dataChannels
	n.dataChannels = make(map[string]DataChannel)
	n.mu.Unlock()

	for _, t := range n.pc.GetTransceivers() {
		sender := t.Sender()
		if sender == nil {
			continue
		}
		track := sender.Track()
		if track == nil {
			continue
		}
		if external, tracked := tracks[track.ID()]; tracked && external {
			continue
		}
		if s, ok := track.(Stoppable); ok {
			s.Stop()
		}
	}

	for _, dc := range channels {
		_ = dc.Close()
	}

	_ = n.pc.Close()

	if n.hooks != nil {
		n.hooks.OnCleanup()
	}
}

// applyMediaConfig configures transceiver directions and tracks for both
// kinds per the resolved plan, spec §4.4.1/§4.4.3.
func (n *Negotiation) applyMediaConfig(resolved ResolvedMediaConfig) error {
	if err := n.applyStream("audio", resolved.Audio); err != nil {
		return err
	}
	return n.applyStream("video", resolved.Video)
}

func (n *Negotiation) applyStream(kind string, rs ResolvedStream) error {
	var existing Transceiver
	for _, t := range n.pc.GetTransceivers() {
		if t.Kind() == kind {
			existing = t
			break
		}
	}

	switch rs.Action {
	case ActionAdd:
		if rs.Track == nil {
			if existing != nil {
				return existing.SetDirection(rs.Direction)
			}
			if rs.Direction == DirectionInactive {
				return nil
			}
			_, err := n.pc.AddTransceiver(kind, rs.Direction)
			return err
		}
		if _, err := n.pc.AddTrack(rs.Track); err != nil {
			return err
		}
		n.noteLocalTrack(rs.Track, rs.External)
		if existing != nil {
			return existing.SetDirection(rs.Direction)
		}
		return nil

	case ActionReplace:
		if existing == nil || existing.Sender() == nil {
			return n.applyStream(kind, ResolvedStream{Direction: rs.Direction, Action: ActionAdd, Track: rs.Track, External: rs.External})
		}
		old := existing.Sender().Track()
		if err := existing.Sender().ReplaceTrack(rs.Track); err != nil {
			return err
		}
		if old != nil {
			n.forgetLocalTrack(old.ID())
		}
		n.noteLocalTrack(rs.Track, rs.External)
		return existing.SetDirection(rs.Direction)

	case ActionRemove:
		if existing != nil && existing.Sender() != nil {
			track := existing.Sender().Track()
			if err := n.pc.RemoveTrack(existing.Sender()); err != nil {
				return err
			}
			if track != nil {
				n.forgetLocalTrack(track.ID())
			}
		}
		if existing != nil {
			return existing.SetDirection(rs.Direction)
		}
		return nil

	default: // ActionKeep
		if existing != nil {
			return existing.SetDirection(rs.Direction)
		}
		if rs.Direction == DirectionRecvOnly || rs.Direction == DirectionSendRecv {
			_, err := n.pc.AddTransceiver(kind, rs.Direction)
			return err
		}
		return nil
	}
}

func (n *Negotiation) noteLocalTrack(track Track, external bool) {
	if track == nil {
		return
	}
	n.mu.Lock()
	n.localTracks[track.ID()] = external
	n.mu.Unlock()
}

func (n *Negotiation) forgetLocalTrack(id string) {
	n.mu.Lock()
	delete(n.localTracks, id)
	n.mu.Unlock()
}

// EnableSimulcast attaches the three-layer simulcast encoding set to
// sender, spec §4.4.4. Callers that need the SDP line-injector fallback
// (when the sender API rejects SetEncodings) post-process the SDP
// themselves before calling SetLocalDescription.
func EnableSimulcast(sender Sender) error {
	return sender.SetEncodings(simulcastLayers)
}

// InjectSimulcastSDP is the fallback path named in spec §4.4.4: when a
// Sender cannot accept encoding parameters directly, the outbound SDP's
// video m-section is rewritten to advertise the same three rids via
// a=simulcast and per-rid a=rid lines.
func InjectSimulcastSDP(sdp string) string {
	return injectSimulcastLines(sdp, simulcastLayers)
}

// --- data channels ---

// SendData sends data over the named data channel, creating it on first use
// (spec §4.4.5). Failing to reach open state surfaces ErrDataChannelNotOpen.
func (n *Negotiation) SendData(label string, data []byte) error {
	n.mu.Lock()
	dc, ok := n.dataChannels[label]
	n.mu.Unlock()

	if !ok {
		created, err := n.pc.CreateDataChannel(label)
		if err != nil {
			return err
		}
		n.mu.Lock()
		n.dataChannels[label] = created
		n.mu.Unlock()
		dc = created
	}

	if err := dc.Send(data); err != nil {
		return ErrDataChannelNotOpen
	}
	return nil
}

// adoptDataChannel registers a peer-created data channel under its label
// (OnDataChannel observer callback).
func (n *Negotiation) adoptDataChannel(dc DataChannel) {
	n.mu.Lock()
	n.dataChannels[dc.Label()] = dc
	n.mu.Unlock()
}

// SendDTMF inserts tones on the first audio sender found, applying the
// spec §4.4.5 defaults when duration/gap are zero.
func (n *Negotiation) SendDTMF(tones string, duration, interToneGap time.Duration) error {
	tones, err := normalizeDTMFTones(tones)
	if err != nil {
		return err
	}
	if duration <= 0 {
		duration = DefaultDTMFDuration
	}
	if interToneGap <= 0 {
		interToneGap = DefaultDTMFInterToneGap
	}

	for _, t := range n.pc.GetTransceivers() {
		if t.Kind() != "audio" || t.Sender() == nil {
			continue
		}
		dtmf, ok := t.Sender().(DTMFSender)
		if !ok {
			continue
		}
		return dtmf.InsertDTMF(tones, duration, interToneGap)
	}
	return &NegotiationFailure{Stage: "send_dtmf", Err: ErrNoAudioSender}
}

// --- PeerConnectionObserver ---

// OnICEConnectionStateChange implements PeerConnectionObserver.
func (n *Negotiation) OnICEConnectionStateChange(state ICEConnectionState) {
	if n.hooks != nil {
		n.hooks.OnICEState(state)
	}
}

// OnICECandidate implements PeerConnectionObserver. A nil candidate is the
// end-of-candidates marker.
func (n *Negotiation) OnICECandidate(candidate *wire.CandidateWire) {
	if !n.trickle {
		return
	}
	if candidate == nil {
		n.sink.SendTrickle(wire.EndOfCandidates())
		return
	}
	n.sink.SendTrickle(*candidate)
}

// OnICEGatheringDone implements PeerConnectionObserver: releases a
// withheld non-trickle SDP.
func (n *Negotiation) OnICEGatheringDone() {
	n.mu.Lock()
	n.iceDone = true
	pending := n.pendingOffer
	n.pendingOffer = nil
	n.mu.Unlock()

	if pending != nil {
		pending.cb(pending.sdp, nil)
	}
}

// OnTrack implements PeerConnectionObserver.
func (n *Negotiation) OnTrack(track Track, mid string) {
	if n.hooks != nil {
		n.hooks.OnRemoteTrack(track, mid, true)
	}
}

// OnTrackRemoved implements PeerConnectionObserver.
func (n *Negotiation) OnTrackRemoved(track Track, mid string) {
	if n.hooks != nil {
		n.hooks.OnRemoteTrack(track, mid, false)
	}
}

// OnDataChannel implements PeerConnectionObserver.
func (n *Negotiation) OnDataChannel(dc DataChannel) {
	n.adoptDataChannel(dc)
	if n.hooks != nil {
		n.hooks.OnDataOpen(dc.Label())
	}
}
