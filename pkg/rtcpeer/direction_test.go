package rtcpeer

import (
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/coderoom/janusrtc/pkg/handle"
)

func TestDirectionRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		dir  handle.TransceiverDirection
	}{
		{"sendonly", handle.DirectionSendOnly},
		{"recvonly", handle.DirectionRecvOnly},
		{"sendrecv", handle.DirectionSendRecv},
		{"inactive", handle.DirectionInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fromPionDirection(toPionDirection(tt.dir))
			if got != tt.dir {
				t.Fatalf("round trip = %v, want %v", got, tt.dir)
			}
		})
	}
}

func TestToPionCodecType(t *testing.T) {
	tests := []struct {
		kind string
		want webrtc.RTPCodecType
	}{
		{"video", webrtc.RTPCodecTypeVideo},
		{"audio", webrtc.RTPCodecTypeAudio},
		{"", webrtc.RTPCodecTypeAudio},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := toPionCodecType(tt.kind); got != tt.want {
				t.Fatalf("toPionCodecType(%q) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestFromPionICEState(t *testing.T) {
	tests := []struct {
		in   webrtc.ICEConnectionState
		want handle.ICEConnectionState
	}{
		{webrtc.ICEConnectionStateChecking, handle.ICEStateChecking},
		{webrtc.ICEConnectionStateConnected, handle.ICEStateConnected},
		{webrtc.ICEConnectionStateCompleted, handle.ICEStateCompleted},
		{webrtc.ICEConnectionStateFailed, handle.ICEStateFailed},
		{webrtc.ICEConnectionStateDisconnected, handle.ICEStateDisconnected},
		{webrtc.ICEConnectionStateClosed, handle.ICEStateClosed},
		{webrtc.ICEConnectionStateNew, handle.ICEStateNew},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := fromPionICEState(tt.in); got != tt.want {
				t.Fatalf("fromPionICEState(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
