package rtcpeer

import (
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/coderoom/janusrtc/pkg/handle"
)

// newTestRTPSender builds a real *webrtc.RTPSender over a throwaway track,
// without touching the network, so rtcSender's adapter methods can be
// exercised against pion's actual API surface.
func newTestRTPSender(t *testing.T) *webrtc.RTPSender {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("NewPeerConnection() error = %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "pion")
	if err != nil {
		t.Fatalf("NewTrackLocalStaticSample() error = %v", err)
	}
	sender, err := pc.AddTrack(track)
	if err != nil {
		t.Fatalf("AddTrack() error = %v", err)
	}
	return sender
}

func TestRTCSenderSetEncodingsReportsUnsupported(t *testing.T) {
	s := &rtcSender{sender: newTestRTPSender(t)}

	err := s.SetEncodings([]handle.EncodingLayer{{RID: "h", MaxBitrate: 900_000, ScaleResolutionDownBy: 1}})
	if err != handle.ErrSimulcastUnsupported {
		t.Fatalf("SetEncodings() error = %v, want ErrSimulcastUnsupported", err)
	}
}

func TestRTCSenderSetEncodingsNoopOnEmptyLayers(t *testing.T) {
	s := &rtcSender{sender: newTestRTPSender(t)}

	if err := s.SetEncodings(nil); err != nil {
		t.Fatalf("SetEncodings(nil) error = %v, want nil", err)
	}
}
