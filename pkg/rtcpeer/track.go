package rtcpeer

import "github.com/pion/webrtc/v4"

// localTrack adapts a pion TrackLocal to handle.Track. pion's TrackLocal is
// a pure RTP-packet source; it owns no capture device, so localTrack does
// not implement handle.Stoppable and Hangup leaves it alone — callers
// supplying a real camera/microphone track implement
// handle.Stoppable themselves and release the device there.
type localTrack struct {
	webrtc.TrackLocal
}

func (t localTrack) Kind() string { return t.TrackLocal.Kind().String() }
func (t localTrack) ID() string   { return t.TrackLocal.ID() }

// remoteTrack adapts a pion TrackRemote to handle.Track.
type remoteTrack struct {
	*webrtc.TrackRemote
}

func (t remoteTrack) Kind() string { return t.TrackRemote.Kind().String() }
func (t remoteTrack) ID() string   { return t.TrackRemote.ID() }
