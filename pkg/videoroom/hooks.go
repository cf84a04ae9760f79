package videoroom

import (
	"encoding/json"

	"github.com/coderoom/janusrtc/pkg/handle"
	"github.com/coderoom/janusrtc/pkg/wire"
)

// Hooks is the VideoRoom Client's application-facing observer contract,
// spec §4.5. One method per room-level event; the same single-delegate
// shape handle.Hooks uses for the lower layer.
type Hooks interface {
	OnJoined(myFeedID, privateID uint64)
	OnCreateParticipant(p *Participant)
	OnRemoveParticipant(feedID uint64)
	OnRemoteTrack(feedID uint64, track handle.Track, mid string, added bool)
	OnLeft()
	OnError(desc string)
}

// publisherHooks adapts the publisher handle.Client's events to the room
// client's bookkeeping. It implements handle.Hooks; every callback this
// module does not need for the publisher role is a no-op.
type publisherHooks struct {
	room *Client
}

func (h *publisherHooks) OnAttached(success bool) {}

func (h *publisherHooks) OnMessage(body json.RawMessage, jsep *wire.JSEP) {
	h.room.handlePublisherEvent(body)
}

func (h *publisherHooks) OnTrickle(candidate wire.CandidateWire) {}

func (h *publisherHooks) OnWebRTCState(up bool, reason string) {}

func (h *publisherHooks) OnMediaState(kind string, receiving bool, mid string) {}

func (h *publisherHooks) OnSlowLink(uplink bool, lost int, mid string) {}

func (h *publisherHooks) OnICEState(state handle.ICEConnectionState) {}

func (h *publisherHooks) OnDataOpen(label string) {}

func (h *publisherHooks) OnData(payload []byte, label string) {}

func (h *publisherHooks) OnLocalTrack(track handle.Track, added bool) {}

func (h *publisherHooks) OnRemoteTrack(track handle.Track, mid string, added bool) {}

func (h *publisherHooks) OnHangup() {}

func (h *publisherHooks) OnDetached() {}

func (h *publisherHooks) OnCleanup() {
	h.room.publisherCleanedUp()
}

func (h *publisherHooks) OnTimeout() {
	h.room.roomError("publisher handle timed out")
}

func (h *publisherHooks) OnError(desc string) {
	h.room.roomError(desc)
}

// subscriberHooks adapts the subscriber handle.Client's events. The
// subscriber's single peer connection multiplexes every remote feed, so
// OnRemoteTrack is the one callback this module cares deeply about: it
// resolves mid back to a feed id via the room client's stream table.
type subscriberHooks struct {
	room *Client
}

func (h *subscriberHooks) OnAttached(success bool) {}

func (h *subscriberHooks) OnMessage(body json.RawMessage, jsep *wire.JSEP) {
	h.room.handleSubscriberEvent(body, jsep)
}

func (h *subscriberHooks) OnTrickle(candidate wire.CandidateWire) {}

func (h *subscriberHooks) OnWebRTCState(up bool, reason string) {}

func (h *subscriberHooks) OnMediaState(kind string, receiving bool, mid string) {}

func (h *subscriberHooks) OnSlowLink(uplink bool, lost int, mid string) {}

func (h *subscriberHooks) OnICEState(state handle.ICEConnectionState) {}

func (h *subscriberHooks) OnDataOpen(label string) {}

func (h *subscriberHooks) OnData(payload []byte, label string) {}

func (h *subscriberHooks) OnLocalTrack(track handle.Track, added bool) {}

func (h *subscriberHooks) OnRemoteTrack(track handle.Track, mid string, added bool) {
	h.room.dispatchRemoteTrack(track, mid, added)
}

func (h *subscriberHooks) OnHangup() {}

func (h *subscriberHooks) OnDetached() {}

func (h *subscriberHooks) OnCleanup() {}

func (h *subscriberHooks) OnTimeout() {
	h.room.roomError("subscriber handle timed out")
}

func (h *subscriberHooks) OnError(desc string) {
	h.room.roomError(desc)
}
