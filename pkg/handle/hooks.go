package handle

import (
	"encoding/json"

	"github.com/coderoom/janusrtc/pkg/wire"
)

// Hooks is the Handle Client's observer contract, spec §4.4. The VideoRoom
// Client implements it; tests use a fake that records calls. Generalized
// from the single-delegate-receives-every-event shape of the teacher's
// ProviderDelegate/RequestorDelegate (pkg/clusters/webrtc-transport) to the
// full Janus plugin-handle event surface.
type Hooks interface {
	OnAttached(success bool)
	OnMessage(body json.RawMessage, jsep *wire.JSEP)
	OnTrickle(candidate wire.CandidateWire)
	OnWebRTCState(up bool, reason string)
	OnMediaState(kind string, receiving bool, mid string)
	OnSlowLink(uplink bool, lost int, mid string)
	OnICEState(state ICEConnectionState)
	OnDataOpen(label string)
	OnData(payload []byte, label string)
	OnLocalTrack(track Track, added bool)
	OnRemoteTrack(track Track, mid string, added bool)
	OnHangup()
	OnDetached()
	OnCleanup()
	OnTimeout()
	OnError(desc string)
}
