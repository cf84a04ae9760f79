package rtcpeer

import (
	"github.com/pion/webrtc/v4"

	"github.com/coderoom/janusrtc/pkg/handle"
)

// rtcDataChannel adapts a pion DataChannel to handle.DataChannel.
type rtcDataChannel struct {
	dc *webrtc.DataChannel
}

func (d *rtcDataChannel) Label() string { return d.dc.Label() }

func (d *rtcDataChannel) Send(data []byte) error {
	if d.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return handle.ErrDataChannelNotOpen
	}
	return d.dc.Send(data)
}

func (d *rtcDataChannel) Close() error { return d.dc.Close() }
