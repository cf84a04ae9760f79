package videoroom

import (
	"encoding/json"
	"sync"

	"github.com/coderoom/janusrtc/pkg/handle"
	"github.com/coderoom/janusrtc/pkg/wire"
)

// fakeTrack is a minimal handle.Track used by the fake MediaSource.
type fakeTrack struct {
	kind string
	id   string
}

func (t fakeTrack) Kind() string { return t.kind }
func (t fakeTrack) ID() string   { return t.id }

// fakeMediaSource hands out fakeTracks without touching any real capture
// device, the same role pkg/rtcpeer.MediaSource plays against a real
// engine.
type fakeMediaSource struct{}

func (fakeMediaSource) CreateAudioTrack() (handle.Track, error) {
	return fakeTrack{kind: "audio", id: "a1"}, nil
}

func (fakeMediaSource) CreateVideoTrack() (handle.Track, error) {
	return fakeTrack{kind: "video", id: "v1"}, nil
}

func (m fakeMediaSource) CreateLocalMediaStream() (audio, video handle.Track, err error) {
	audio, _ = m.CreateAudioTrack()
	video, _ = m.CreateVideoTrack()
	return audio, video, nil
}

// fakeSender/fakeTransceiver/fakePeerConnection mirror the same minimal
// PeerConnection double pkg/handle's negotiation_test.go uses, reimplemented
// here since those types are unexported to that package.
type fakeSender struct {
	track handle.Track
}

func (s *fakeSender) Track() handle.Track             { return s.track }
func (s *fakeSender) ReplaceTrack(t handle.Track) error { s.track = t; return nil }
func (s *fakeSender) SetEncodings(layers []handle.EncodingLayer) error { return nil }

type fakeTransceiver struct {
	kind      string
	direction handle.TransceiverDirection
	sender    *fakeSender
}

func (t *fakeTransceiver) Kind() string                          { return t.kind }
func (t *fakeTransceiver) Mid() string                           { return "0" }
func (t *fakeTransceiver) Direction() handle.TransceiverDirection { return t.direction }
func (t *fakeTransceiver) SetDirection(d handle.TransceiverDirection) error {
	t.direction = d
	return nil
}
func (t *fakeTransceiver) Sender() handle.Sender {
	if t.sender == nil {
		return nil
	}
	return t.sender
}

type fakePeerConnection struct {
	mu           sync.Mutex
	observer     handle.PeerConnectionObserver
	transceivers []handle.Transceiver
	closed       bool
}

func (p *fakePeerConnection) CreateOffer(opts handle.OfferAnswerOptions) (string, error) {
	return "v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\ns=-\r\n", nil
}

func (p *fakePeerConnection) CreateAnswer(opts handle.OfferAnswerOptions) (string, error) {
	return "v=0\r\no=- 2 1 IN IP4 0.0.0.0\r\ns=-\r\n", nil
}

func (p *fakePeerConnection) SetLocalDescription(typ wire.JSEPType, sdp string) error  { return nil }
func (p *fakePeerConnection) SetRemoteDescription(typ wire.JSEPType, sdp string) error { return nil }
func (p *fakePeerConnection) AddICECandidate(candidate *wire.CandidateWire) error      { return nil }

func (p *fakePeerConnection) AddTrack(track handle.Track) (handle.Sender, error) {
	s := &fakeSender{track: track}
	p.mu.Lock()
	p.transceivers = append(p.transceivers, &fakeTransceiver{kind: track.Kind(), sender: s})
	p.mu.Unlock()
	return s, nil
}

func (p *fakePeerConnection) RemoveTrack(sender handle.Sender) error { return nil }

func (p *fakePeerConnection) GetTransceivers() []handle.Transceiver {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transceivers
}

func (p *fakePeerConnection) AddTransceiver(kind string, direction handle.TransceiverDirection) (handle.Transceiver, error) {
	t := &fakeTransceiver{kind: kind, direction: direction}
	p.mu.Lock()
	p.transceivers = append(p.transceivers, t)
	p.mu.Unlock()
	return t, nil
}

func (p *fakePeerConnection) CreateDataChannel(label string) (handle.DataChannel, error) {
	return nil, nil
}

func (p *fakePeerConnection) SetObserver(observer handle.PeerConnectionObserver) { p.observer = observer }
func (p *fakePeerConnection) Close() error                                       { p.closed = true; return nil }

func newFakePeerConnection() (handle.PeerConnection, error) {
	return &fakePeerConnection{}, nil
}

// recordingHooks records every room-level callback for test assertions.
type recordingHooks struct {
	mu         sync.Mutex
	joined     []joinedCall
	created    []*Participant
	removed    []uint64
	tracks     []trackCall
	left       int
	errors     []string
}

type joinedCall struct {
	feedID, privateID uint64
}

type trackCall struct {
	feedID uint64
	mid    string
	added  bool
}

func (h *recordingHooks) OnJoined(feedID, privateID uint64) {
	h.mu.Lock()
	h.joined = append(h.joined, joinedCall{feedID, privateID})
	h.mu.Unlock()
}

func (h *recordingHooks) OnCreateParticipant(p *Participant) {
	h.mu.Lock()
	h.created = append(h.created, p)
	h.mu.Unlock()
}

func (h *recordingHooks) OnRemoveParticipant(feedID uint64) {
	h.mu.Lock()
	h.removed = append(h.removed, feedID)
	h.mu.Unlock()
}

func (h *recordingHooks) OnRemoteTrack(feedID uint64, track handle.Track, mid string, added bool) {
	h.mu.Lock()
	h.tracks = append(h.tracks, trackCall{feedID, mid, added})
	h.mu.Unlock()
}

func (h *recordingHooks) OnLeft() {
	h.mu.Lock()
	h.left++
	h.mu.Unlock()
}

func (h *recordingHooks) OnError(desc string) {
	h.mu.Lock()
	h.errors = append(h.errors, desc)
	h.mu.Unlock()
}

func marshalBody(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
