package rtcpeer

import (
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/coderoom/janusrtc/pkg/handle"
	"github.com/coderoom/janusrtc/pkg/wire"
)

// Config configures a PeerConnection.
type Config struct {
	// ICEServers are the STUN/TURN server URLs passed to pion, e.g.
	// "stun:stun.l.google.com:19302".
	ICEServers []string
}

// PeerConnection adapts a pion *webrtc.PeerConnection to handle.PeerConnection,
// the default runtime backing named in spec §6.
type PeerConnection struct {
	pc *webrtc.PeerConnection
}

// New creates a PeerConnection with a fresh pion engine.
func New(config Config) (*PeerConnection, error) {
	servers := make([]webrtc.ICEServer, 0, len(config.ICEServers))
	for _, url := range config.ICEServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{url}})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, fmt.Errorf("rtcpeer: new peer connection: %w", err)
	}
	return &PeerConnection{pc: pc}, nil
}

func toPionSDPType(typ wire.JSEPType) webrtc.SDPType {
	if typ == wire.JSEPAnswer {
		return webrtc.SDPTypeAnswer
	}
	return webrtc.SDPTypeOffer
}

// CreateOffer implements handle.PeerConnection. Legacy offer-to-receive
// flags have no pion equivalent; callers get the same effect by adding a
// recvonly transceiver, which Negotiation already does per the resolved
// media config (spec §4.4.3).
func (p *PeerConnection) CreateOffer(opts handle.OfferAnswerOptions) (string, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	return offer.SDP, nil
}

// CreateAnswer implements handle.PeerConnection.
func (p *PeerConnection) CreateAnswer(opts handle.OfferAnswerOptions) (string, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	return answer.SDP, nil
}

// SetLocalDescription implements handle.PeerConnection.
func (p *PeerConnection) SetLocalDescription(typ wire.JSEPType, sdp string) error {
	return p.pc.SetLocalDescription(webrtc.SessionDescription{Type: toPionSDPType(typ), SDP: sdp})
}

// SetRemoteDescription implements handle.PeerConnection.
func (p *PeerConnection) SetRemoteDescription(typ wire.JSEPType, sdp string) error {
	return p.pc.SetRemoteDescription(webrtc.SessionDescription{Type: toPionSDPType(typ), SDP: sdp})
}

// AddICECandidate implements handle.PeerConnection. A nil candidate is the
// end-of-candidates marker, delivered to pion as an empty init.
func (p *PeerConnection) AddICECandidate(candidate *wire.CandidateWire) error {
	return p.pc.AddICECandidate(toPionCandidate(candidate))
}

// AddTrack implements handle.PeerConnection. track must have been created
// by this package's MediaSource.
func (p *PeerConnection) AddTrack(track handle.Track) (handle.Sender, error) {
	lt, ok := track.(localTrack)
	if !ok {
		return nil, fmt.Errorf("rtcpeer: track was not created by this package's MediaSource")
	}
	sender, err := p.pc.AddTrack(lt.TrackLocal)
	if err != nil {
		return nil, err
	}
	return &rtcSender{sender: sender}, nil
}

// RemoveTrack implements handle.PeerConnection.
func (p *PeerConnection) RemoveTrack(sender handle.Sender) error {
	rs, ok := sender.(*rtcSender)
	if !ok {
		return fmt.Errorf("rtcpeer: sender was not created by this package")
	}
	return p.pc.RemoveTrack(rs.sender)
}

// GetTransceivers implements handle.PeerConnection.
func (p *PeerConnection) GetTransceivers() []handle.Transceiver {
	pts := p.pc.GetTransceivers()
	out := make([]handle.Transceiver, 0, len(pts))
	for _, t := range pts {
		out = append(out, &rtcTransceiver{t: t})
	}
	return out
}

// AddTransceiver implements handle.PeerConnection.
func (p *PeerConnection) AddTransceiver(kind string, direction handle.TransceiverDirection) (handle.Transceiver, error) {
	t, err := p.pc.AddTransceiverFromKind(toPionCodecType(kind), webrtc.RTPTransceiverInit{Direction: toPionDirection(direction)})
	if err != nil {
		return nil, err
	}
	return &rtcTransceiver{t: t}, nil
}

// CreateDataChannel implements handle.PeerConnection.
func (p *PeerConnection) CreateDataChannel(label string) (handle.DataChannel, error) {
	dc, err := p.pc.CreateDataChannel(label, nil)
	if err != nil {
		return nil, err
	}
	return &rtcDataChannel{dc: dc}, nil
}

// SetObserver implements handle.PeerConnection, wiring every pion callback
// to the matching handle.PeerConnectionObserver method. pion has no
// explicit "track removed" event; OnTrackRemoved is never invoked by this
// adapter (a backend with such an event, e.g. a future engine swap, can
// wire it).
func (p *PeerConnection) SetObserver(observer handle.PeerConnectionObserver) {
	p.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		observer.OnICEConnectionStateChange(fromPionICEState(s))
	})

	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			observer.OnICECandidate(nil)
			return
		}
		candidate := fromPionCandidate(c.ToJSON())
		observer.OnICECandidate(&candidate)
	})

	p.pc.OnICEGatheringStateChange(func(s webrtc.ICEGatheringState) {
		if s == webrtc.ICEGatheringStateComplete {
			observer.OnICEGatheringDone()
		}
	})

	p.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		observer.OnTrack(remoteTrack{TrackRemote: track}, p.midForReceiver(receiver))
	})

	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		observer.OnDataChannel(&rtcDataChannel{dc: dc})
	})
}

func (p *PeerConnection) midForReceiver(receiver *webrtc.RTPReceiver) string {
	for _, t := range p.pc.GetTransceivers() {
		if t.Receiver() == receiver {
			return t.Mid()
		}
	}
	return ""
}

// Close implements handle.PeerConnection.
func (p *PeerConnection) Close() error {
	return p.pc.Close()
}
