package rtcpeer

import (
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/coderoom/janusrtc/pkg/handle"
)

// rtcSender adapts a pion RTPSender to handle.Sender, and to
// handle.DTMFSender when it carries an audio track.
type rtcSender struct {
	sender *webrtc.RTPSender
}

func (s *rtcSender) Track() handle.Track {
	t := s.sender.Track()
	if t == nil {
		return nil
	}
	return localTrack{TrackLocal: t}
}

func (s *rtcSender) ReplaceTrack(track handle.Track) error {
	if track == nil {
		return s.sender.ReplaceTrack(nil)
	}
	lt, ok := track.(localTrack)
	if !ok {
		return fmt.Errorf("rtcpeer: track was not created by this package's MediaSource")
	}
	return s.sender.ReplaceTrack(lt.TrackLocal)
}

// SetEncodings exists to satisfy handle.Sender, spec §4.4.4. pion/webrtc/v4
// configures simulcast by passing SendEncodings in the
// webrtc.RTPTransceiverInit at transceiver-creation time; *webrtc.RTPSender
// exposes GetParameters but has no SetParameters to mutate an
// already-created sender's encodings. There is accordingly nothing this
// method can do to an existing rtcSender: an empty layer set is accepted as
// a no-op, and any other set reports handle.ErrSimulcastUnsupported so that
// callers use handle.InjectSimulcastSDP on the offer SDP before
// SetLocalDescription instead.
func (s *rtcSender) SetEncodings(layers []handle.EncodingLayer) error {
	if len(layers) == 0 {
		return nil
	}
	return handle.ErrSimulcastUnsupported
}

// InsertDTMF implements handle.DTMFSender for an audio sender.
func (s *rtcSender) InsertDTMF(tones string, duration, interToneGap time.Duration) error {
	dtmf := s.sender.GetDTMFSender()
	if dtmf == nil {
		return handle.ErrNoAudioSender
	}
	return dtmf.InsertDTMF(tones, duration, interToneGap)
}
