package rtcpeer

import (
	"github.com/pion/webrtc/v4"

	"github.com/coderoom/janusrtc/pkg/handle"
)

// rtcTransceiver adapts a pion RTPTransceiver to handle.Transceiver.
type rtcTransceiver struct {
	t *webrtc.RTPTransceiver
}

func (t *rtcTransceiver) Kind() string { return t.t.Kind().String() }

func (t *rtcTransceiver) Mid() string { return t.t.Mid() }

func (t *rtcTransceiver) Direction() handle.TransceiverDirection {
	return fromPionDirection(t.t.Direction())
}

func (t *rtcTransceiver) SetDirection(d handle.TransceiverDirection) error {
	t.t.SetDirection(toPionDirection(d))
	return nil
}

func (t *rtcTransceiver) Sender() handle.Sender {
	s := t.t.Sender()
	if s == nil {
		return nil
	}
	return &rtcSender{sender: s}
}
