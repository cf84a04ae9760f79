package videoroom

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Request bodies sent as the `body` field of a plugin `message`, spec §6.

// JoinPublisherBody requests ptype=publisher.
type JoinPublisherBody struct {
	Request string `json:"request"`
	PType   string `json:"ptype"`
	Room    string `json:"room"`
	Display string `json:"display,omitempty"`
	PIN     string `json:"pin,omitempty"`
}

// NewJoinPublisherBody builds a publisher `join` body.
func NewJoinPublisherBody(room, display, pin string) JoinPublisherBody {
	return JoinPublisherBody{Request: "join", PType: "publisher", Room: room, Display: display, PIN: pin}
}

// JoinSubscriberBody requests ptype=subscriber for a set of feeds.
type JoinSubscriberBody struct {
	Request   string   `json:"request"`
	PType     string   `json:"ptype"`
	Room      string   `json:"room"`
	PrivateID uint64   `json:"private_id,omitempty"`
	Streams   []Stream `json:"streams"`
}

// Stream identifies one remote publisher feed to subscribe to.
type Stream struct {
	Feed uint64 `json:"feed"`
}

// NewJoinSubscriberBody builds a subscriber `join` body requesting feeds.
func NewJoinSubscriberBody(room string, privateID uint64, feeds []uint64) JoinSubscriberBody {
	streams := make([]Stream, 0, len(feeds))
	for _, f := range feeds {
		streams = append(streams, Stream{Feed: f})
	}
	return JoinSubscriberBody{Request: "join", PType: "subscriber", Room: room, PrivateID: privateID, Streams: streams}
}

// SubscribeBody requests `subscribe`, adding feeds to an already-joined
// subscriber handle's multistream session.
type SubscribeBody struct {
	Request string   `json:"request"`
	Streams []Stream `json:"streams"`
}

// NewSubscribeBody builds a `subscribe` body for feeds.
func NewSubscribeBody(feeds []uint64) SubscribeBody {
	streams := make([]Stream, 0, len(feeds))
	for _, f := range feeds {
		streams = append(streams, Stream{Feed: f})
	}
	return SubscribeBody{Request: "subscribe", Streams: streams}
}

// UnsubscribeBody requests `unsubscribe`, dropping feeds from an
// already-joined subscriber handle's multistream session.
type UnsubscribeBody struct {
	Request string   `json:"request"`
	Streams []Stream `json:"streams"`
}

// NewUnsubscribeBody builds an `unsubscribe` body for feeds.
func NewUnsubscribeBody(feeds []uint64) UnsubscribeBody {
	streams := make([]Stream, 0, len(feeds))
	for _, f := range feeds {
		streams = append(streams, Stream{Feed: f})
	}
	return UnsubscribeBody{Request: "unsubscribe", Streams: streams}
}

// ConfigureBody requests `configure`, used by both roles: a publisher sends
// its offer's SDP alongside a bitrate cap and optional display name
// (spec §4.5 step 3); a subscriber uses it to update stream selection.
type ConfigureBody struct {
	Request string `json:"request"`
	Bitrate *int   `json:"bitrate,omitempty"`
	Display string `json:"display,omitempty"`
}

// NewConfigureBody builds a `configure` body. bitrate <= 0 omits the field
// entirely, per SPEC_FULL.md's Open Question decision: never send a
// literal 0.
func NewConfigureBody(bitrate int, display string) ConfigureBody {
	body := ConfigureBody{Request: "configure", Display: display}
	if bitrate > 0 {
		body.Bitrate = &bitrate
	}
	return body
}

// PublishBody requests `publish` with the offer SDP, as an alternative
// entry point to a combined join+configure (spec §6).
type PublishBody struct {
	Request string `json:"request"`
	Bitrate *int    `json:"bitrate,omitempty"`
	Display string  `json:"display,omitempty"`
}

// UnpublishBody requests `unpublish`.
type UnpublishBody struct {
	Request string `json:"request"`
}

// NewUnpublishBody builds an `unpublish` body.
func NewUnpublishBody() UnpublishBody { return UnpublishBody{Request: "unpublish"} }

// LeaveBody requests `leave`.
type LeaveBody struct {
	Request string `json:"request"`
}

// NewLeaveBody builds a `leave` body.
func NewLeaveBody() LeaveBody { return LeaveBody{Request: "leave"} }

// KickBody requests `kick` of a feed by an admin/room-owner credential,
// supplemented per SPEC_FULL.md §D from original_source's room-admin path.
type KickBody struct {
	Request string `json:"request"`
	Room    string `json:"room"`
	ID      uint64 `json:"id"`
	Secret  string `json:"secret,omitempty"`
}

// NewKickBody builds a `kick` body.
func NewKickBody(room string, feedID uint64, secret string) KickBody {
	return KickBody{Request: "kick", Room: room, ID: feedID, Secret: secret}
}

// StartBody requests `start`, confirming a subscriber's answer and
// releasing the server's aggregated media stream.
type StartBody struct {
	Request string `json:"request"`
	Room    string `json:"room,omitempty"`
}

// NewStartBody builds a `start` body.
func NewStartBody(room string) StartBody { return StartBody{Request: "start", Room: room} }

// StreamInfo describes one multiplexed m-line of the subscriber's
// aggregated peer connection, correlating an SDP mid back to the
// publisher feed it carries.
type StreamInfo struct {
	Type   string `json:"type"`
	Mindex int    `json:"mindex"`
	Mid    string `json:"mid"`
	FeedID uint64 `json:"feed_id"`
}

// SubscriberAttachedEvent is the subscriber join/subscribe reply, carrying
// the mid-to-feed correlation table alongside the jsep offer delivered on
// the same envelope.
type SubscriberAttachedEvent struct {
	VideoRoom string       `json:"videoroom"`
	Room      string       `json:"room"`
	Streams   []StreamInfo `json:"streams"`
}

// ListBody requests `list`, supplemented per SPEC_FULL.md §D.
type ListBody struct {
	Request string `json:"request"`
}

// NewListBody builds a `list` body.
func NewListBody() ListBody { return ListBody{Request: "list"} }

// CreateBody requests `create`.
type CreateBody struct {
	Request     string `json:"request"`
	Room        string `json:"room,omitempty"`
	Description string `json:"description,omitempty"`
}

// DestroyBody requests `destroy`.
type DestroyBody struct {
	Request string `json:"request"`
	Room    string `json:"room"`
}

// --- reply/event bodies ---

// PublisherInfo is one entry of the `publishers` array carried by a `joined`
// reply or a later `event`.
type PublisherInfo struct {
	ID      uint64 `json:"id"`
	Display string `json:"display,omitempty"`
}

// JoinedEvent is the publisher join reply, spec §6: carries `id`,
// `private_id`, and the current `publishers[]` list.
type JoinedEvent struct {
	VideoRoom  string          `json:"videoroom"`
	Room       string          `json:"room"`
	ID         uint64          `json:"id"`
	PrivateID  uint64          `json:"private_id"`
	Publishers []PublisherInfo `json:"publishers"`
}

// UnpublishedID decodes the `unpublished` field, which the gateway encodes
// as either a JSON number or a JSON string depending on version, both
// denoting the same feed id; the literal 0 in either encoding means "self"
// (SPEC_FULL.md Open Question #3).
type UnpublishedID struct {
	raw json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler, storing the raw token so IsSelf
// and FeedID can interpret either encoding.
func (u *UnpublishedID) UnmarshalJSON(data []byte) error {
	u.raw = append(u.raw[:0], data...)
	return nil
}

// IsSelf reports whether the unpublished id denotes the local publisher.
func (u UnpublishedID) IsSelf() bool {
	id, ok := u.FeedID()
	return ok && id == 0
}

// FeedID parses the underlying value as a feed id, numeric or quoted.
func (u UnpublishedID) FeedID() (uint64, bool) {
	if len(u.raw) == 0 {
		return 0, false
	}
	s := strings.Trim(string(u.raw), `"`)
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// RoomEvent covers every VideoRoom `event` shape this client must recognize:
// an updated publisher list, a peer leaving, a peer (or self) unpublishing,
// or a plugin-level error, spec §6.
type RoomEvent struct {
	VideoRoom  string          `json:"videoroom"`
	Room       string          `json:"room"`
	Publishers []PublisherInfo `json:"publishers,omitempty"`
	Leaving    json.RawMessage `json:"leaving,omitempty"`
	Unpublished *UnpublishedID `json:"unpublished,omitempty"`
	Error       string         `json:"error,omitempty"`
	ErrorCode   int            `json:"error_code,omitempty"`
}

// LeavingFeedID parses the `leaving` field, which like `unpublished` may be
// numeric or string, or the literal "ok" acknowledgement with no feed id.
func (e RoomEvent) LeavingFeedID() (uint64, bool) {
	if len(e.Leaving) == 0 {
		return 0, false
	}
	s := strings.Trim(string(e.Leaving), `"`)
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ListEvent is the `list` reply.
type ListEvent struct {
	VideoRoom string   `json:"videoroom"`
	List      []string `json:"list"`
}
