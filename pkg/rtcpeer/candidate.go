package rtcpeer

import (
	"github.com/pion/webrtc/v4"

	"github.com/coderoom/janusrtc/pkg/wire"
)

func toPionCandidate(c *wire.CandidateWire) webrtc.ICECandidateInit {
	if c == nil || c.Completed {
		return webrtc.ICECandidateInit{}
	}
	mLineIndex := uint16(c.SDPMLineIndex)
	sdpMid := c.SDPMid
	return webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        &sdpMid,
		SDPMLineIndex: &mLineIndex,
	}
}

func fromPionCandidate(init webrtc.ICECandidateInit) wire.CandidateWire {
	candidate := wire.CandidateWire{Candidate: init.Candidate}
	if init.SDPMid != nil {
		candidate.SDPMid = *init.SDPMid
	}
	if init.SDPMLineIndex != nil {
		candidate.SDPMLineIndex = int(*init.SDPMLineIndex)
	}
	return candidate
}
