package wire

import "encoding/json"

// Kind enumerates the `janus` field of an envelope, both the request kinds
// this client sends and the reply/unsolicited kinds a Janus gateway sends
// back. String values are the literal wire tokens.
type Kind string

// Outbound request kinds.
const (
	KindCreate    Kind = "create"
	KindAttach    Kind = "attach"
	KindKeepAlive Kind = "keepalive"
	KindMessage   Kind = "message"
	KindTrickle   Kind = "trickle"
	KindHangup    Kind = "hangup"
	KindDetach    Kind = "detach"
	KindDestroy   Kind = "destroy"
	KindClaim     Kind = "claim" // reconnect_session
)

// Synchronous reply kinds.
const (
	KindAck     Kind = "ack"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Unsolicited event kinds recognized per the event-demultiplexing rules.
// Anything outside this set is logged and dropped.
const (
	KindServerInfo Kind = "server_info"
	KindWebRTCUp   Kind = "webrtcup"
	KindDetached   Kind = "detached"
	KindMedia      Kind = "media"
	KindSlowLink   Kind = "slowlink"
	KindEvent      Kind = "event"
	KindTimeout    Kind = "timeout"
)

// IsUnsolicited reports whether Kind is one of the recognized unsolicited
// event kinds demultiplexed by `sender` rather than by transaction id.
// KindTrickle and KindHangup double as both a request kind this client
// sends and an unsolicited kind the gateway pushes; callers distinguish by
// the presence of a matching pending transaction.
func (k Kind) IsUnsolicited() bool {
	switch k {
	case KindKeepAlive, KindServerInfo, KindTrickle, KindWebRTCUp, KindHangup,
		KindDetached, KindMedia, KindSlowLink, KindEvent, KindTimeout, KindError:
		return true
	default:
		return false
	}
}

// Envelope is the outer JSON object every Janus message is wrapped in,
// whichever direction it travels. Fields unused by a given message kind are
// simply omitted on encode and left zero on decode.
type Envelope struct {
	Janus       Kind            `json:"janus"`
	Transaction string          `json:"transaction,omitempty"`
	SessionID   uint64          `json:"session_id,omitempty"`
	HandleID    uint64          `json:"handle_id,omitempty"`
	Sender      uint64          `json:"sender,omitempty"`
	Plugin      string          `json:"plugin,omitempty"`
	OpaqueID    string          `json:"opaque_id,omitempty"`
	APISecret   string          `json:"apisecret,omitempty"`
	Token       string          `json:"token,omitempty"`

	Body       json.RawMessage  `json:"body,omitempty"`
	Jsep       *JSEP            `json:"jsep,omitempty"`
	Candidate  json.RawMessage  `json:"candidate,omitempty"`
	Candidates []CandidateWire  `json:"candidates,omitempty"`

	Data       *DataBody     `json:"data,omitempty"`
	PluginData *PluginData   `json:"plugindata,omitempty"`
	Error      *ErrorBody    `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Reason     string          `json:"reason,omitempty"`

	// Fields specific to a handful of unsolicited event kinds: "media"
	// carries Type/Receiving/Mid, "slowlink" carries Uplink/Lost/Mid,
	// "webrtcup" carries nothing beyond the envelope header.
	Type      string `json:"type,omitempty"`
	Receiving *bool  `json:"receiving,omitempty"`
	Mid       string `json:"mid,omitempty"`
	Uplink    *bool  `json:"uplink,omitempty"`
	Lost      int    `json:"lost,omitempty"`
}

// DataBody carries the `data` object Janus returns for create_session and
// attach acknowledgements, `{"id": <numeric id>}`.
type DataBody struct {
	ID uint64 `json:"id"`
}

// PluginData carries a plugin's own namespaced reply, `{plugin, data}`.
type PluginData struct {
	Plugin string          `json:"plugin"`
	Data   json.RawMessage `json:"data"`
}

// ErrorBody is the `{code, reason}` shape Janus uses for both transport-level
// and plugin-level errors.
type ErrorBody struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// NewRequest builds the common envelope fields shared by every outbound
// request: the kind, a fresh transaction id, and the session/handle scoping
// that applies to it (zero values are omitted on encode).
func NewRequest(kind Kind, transaction string, sessionID, handleID uint64) Envelope {
	return Envelope{
		Janus:       kind,
		Transaction: transaction,
		SessionID:   sessionID,
		HandleID:    handleID,
	}
}
