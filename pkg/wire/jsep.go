package wire

// JSEPType distinguishes an offer from an answer inside a JSEP container.
type JSEPType string

const (
	JSEPOffer  JSEPType = "offer"
	JSEPAnswer JSEPType = "answer"
)

// JSEP is the `{type, sdp}` container Janus uses to carry SDP over the
// signaling channel, per the GLOSSARY definition.
type JSEP struct {
	Type JSEPType `json:"type"`
	SDP  string   `json:"sdp"`
}

// CandidateWire is the wire shape of a single trickle ICE candidate, or the
// end-of-candidates marker when Completed is true and the other fields are
// left zero.
type CandidateWire struct {
	Candidate     string `json:"candidate,omitempty"`
	SDPMid        string `json:"sdpMid,omitempty"`
	SDPMLineIndex int    `json:"sdpMLineIndex"`
	Completed     bool   `json:"completed,omitempty"`
}

// EndOfCandidates is the end-of-candidates marker sent once local ICE
// gathering finishes, or received to flag the same on the remote side. It
// encodes as `{"sdpMLineIndex": 0, "completed": true}`, since
// SDPMLineIndex is always written.
func EndOfCandidates() CandidateWire {
	return CandidateWire{Completed: true}
}
