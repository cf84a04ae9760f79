package rtcpeer

import (
	"github.com/pion/webrtc/v4"

	"github.com/coderoom/janusrtc/pkg/handle"
)

// MediaSource implements handle.MediaSource over pion's TrackLocalStaticSample,
// a pure RTP-packet sink with no capture device attached: callers feed
// samples into the returned track themselves (from a camera/microphone
// reader, a file, a test generator). Spec §6 names MediaSource as a
// collaborator interface precisely so capture stays outside this module's
// scope.
type MediaSource struct{}

// NewMediaSource returns the default pion-backed MediaSource.
func NewMediaSource() MediaSource { return MediaSource{} }

func (MediaSource) CreateAudioTrack() (handle.Track, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "janusrtc",
	)
	if err != nil {
		return nil, err
	}
	return localTrack{TrackLocal: track}, nil
}

func (MediaSource) CreateVideoTrack() (handle.Track, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "janusrtc",
	)
	if err != nil {
		return nil, err
	}
	return localTrack{TrackLocal: track}, nil
}

func (m MediaSource) CreateLocalMediaStream() (audio, video handle.Track, err error) {
	audio, err = m.CreateAudioTrack()
	if err != nil {
		return nil, nil, err
	}
	video, err = m.CreateVideoTrack()
	if err != nil {
		return nil, nil, err
	}
	return audio, video, nil
}
