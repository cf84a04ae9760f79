package videoroom

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/coderoom/janusrtc/pkg/eventloop"
	"github.com/coderoom/janusrtc/pkg/handle"
	"github.com/coderoom/janusrtc/pkg/janusapi"
	"github.com/coderoom/janusrtc/pkg/session"
	"github.com/coderoom/janusrtc/pkg/transport"
	"github.com/coderoom/janusrtc/pkg/wire"
)

// fakeTransport auto-replies to every request kind a VideoRoom Client
// exercises, shaping the plugin reply by inspecting the outbound body's
// `request` field. Grounded on the same pattern as pkg/handle's
// client_test.go fakeTransport.
type fakeTransport struct {
	mu        sync.Mutex
	state     transport.State
	observers map[string]transport.Observer
	nextID    uint64
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		state:     transport.StateIdle,
		observers: make(map[string]transport.Observer),
		nextID:    1000,
	}
}

func (f *fakeTransport) Connect(ctx context.Context, url string) error {
	f.mu.Lock()
	f.state = transport.StateOpen
	obs := f.observers
	f.mu.Unlock()
	for _, o := range obs {
		o.OnOpened()
	}
	return nil
}

func (f *fakeTransport) Disconnect() error { return nil }

func (f *fakeTransport) SendText(payload []byte) error {
	var req wire.Envelope
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	f.mu.Lock()
	obs := f.observers
	f.mu.Unlock()
	go f.autoReply(req, obs)
	return nil
}

type requestBody struct {
	Request string `json:"request"`
	PType   string `json:"ptype"`
}

func (f *fakeTransport) autoReply(req wire.Envelope, obs map[string]transport.Observer) {
	var replies []wire.Envelope

	switch req.Janus {
	case wire.KindCreate:
		replies = []wire.Envelope{{Janus: wire.KindSuccess, Transaction: req.Transaction, Data: &wire.DataBody{ID: 42}}}

	case wire.KindAttach:
		f.mu.Lock()
		id := f.nextID
		f.nextID++
		f.mu.Unlock()
		replies = []wire.Envelope{{Janus: wire.KindSuccess, Transaction: req.Transaction, Data: &wire.DataBody{ID: id}}}

	case wire.KindDetach, wire.KindHangup, wire.KindTrickle, wire.KindKeepAlive:
		replies = []wire.Envelope{{Janus: wire.KindAck, Transaction: req.Transaction}}

	case wire.KindMessage:
		replies = f.pluginReply(req)

	default:
		return
	}

	for _, reply := range replies {
		data, _ := json.Marshal(reply)
		for _, o := range obs {
			o.OnTextMessage(data)
		}
	}
}

func (f *fakeTransport) pluginReply(req wire.Envelope) []wire.Envelope {
	var body requestBody
	json.Unmarshal(req.Body, &body)

	ack := wire.Envelope{Janus: wire.KindAck, Transaction: req.Transaction}

	switch {
	case body.Request == "join" && body.PType == "publisher":
		data := marshalBody(JoinedEvent{VideoRoom: "joined", Room: "demo", ID: 77, PrivateID: 9, Publishers: []PublisherInfo{}})
		event := wire.Envelope{Janus: wire.KindEvent, Transaction: req.Transaction, PluginData: &wire.PluginData{Plugin: pluginName, Data: data}}
		return []wire.Envelope{ack, event}

	case body.Request == "join" && body.PType == "subscriber":
		data := marshalBody(SubscriberAttachedEvent{VideoRoom: "attached", Room: "demo", Streams: []StreamInfo{
			{Type: "audio", Mindex: 0, Mid: "0", FeedID: 5},
		}})
		event := wire.Envelope{
			Janus:       wire.KindEvent,
			Transaction: req.Transaction,
			PluginData:  &wire.PluginData{Plugin: pluginName, Data: data},
			Jsep:        &wire.JSEP{Type: wire.JSEPOffer, SDP: "v=0\r\no=- 3 1 IN IP4 0.0.0.0\r\ns=-\r\n"},
		}
		return []wire.Envelope{ack, event}

	case body.Request == "configure":
		data := marshalBody(map[string]string{"videoroom": "event"})
		event := wire.Envelope{
			Janus:       wire.KindEvent,
			Transaction: req.Transaction,
			PluginData:  &wire.PluginData{Plugin: pluginName, Data: data},
			Jsep:        &wire.JSEP{Type: wire.JSEPAnswer, SDP: "v=0\r\no=- 4 1 IN IP4 0.0.0.0\r\ns=-\r\n"},
		}
		return []wire.Envelope{ack, event}

	default:
		data := marshalBody(map[string]string{"videoroom": "event"})
		event := wire.Envelope{Janus: wire.KindEvent, Transaction: req.Transaction, PluginData: &wire.PluginData{Plugin: pluginName, Data: data}}
		return []wire.Envelope{ack, event}
	}
}

func (f *fakeTransport) Subscribe(key string, observer transport.Observer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers[key] = observer
}

func (f *fakeTransport) Unsubscribe(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.observers, key)
}

func (f *fakeTransport) State() transport.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func fastBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 20 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

func newTestClient(t *testing.T, hooks Hooks) *Client {
	t.Helper()
	return newTestClientWithPC(t, hooks, newFakePeerConnection)
}

func newTestClientWithPC(t *testing.T, hooks Hooks, newPC func() (handle.PeerConnection, error)) *Client {
	t.Helper()
	tr := newFakeTransport()
	api := janusapi.New(janusapi.Config{Transport: tr})
	loop := eventloop.New(eventloop.Config{})
	mgr := session.New(session.Config{
		Transport:  tr,
		URL:        "ws://example.invalid/janus",
		Client:     api,
		Loop:       loop,
		NewBackOff: fastBackOff,
	})
	t.Cleanup(func() { mgr.Close() })

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for mgr.State() != session.StateUp && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if mgr.State() != session.StateUp {
		t.Fatalf("session never reached Up, state = %v", mgr.State())
	}

	return New(Config{
		API:               api,
		Session:           mgr,
		NewPeerConnection: newPC,
		MediaSource:       fakeMediaSource{},
		Hooks:             hooks,
	})
}

func TestJoinAsPublisherReachesJoinedState(t *testing.T) {
	hooks := &recordingHooks{}
	c := newTestClient(t, hooks)

	done := make(chan error, 1)
	if err := c.JoinAsPublisher(PublisherOptions{Room: "demo", Display: "alice"}, func(err error) { done <- err }); err != nil {
		t.Fatalf("JoinAsPublisher: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("join callback error: %v", err)
	}

	if c.State() != StateJoined {
		t.Fatalf("State() = %v, want Joined", c.State())
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.joined) != 1 || hooks.joined[0].feedID != 77 || hooks.joined[0].privateID != 9 {
		t.Fatalf("OnJoined calls = %v, want [{77 9}]", hooks.joined)
	}
}

func TestPublisherListUpdateCreatesParticipants(t *testing.T) {
	hooks := &recordingHooks{}
	c := newTestClient(t, hooks)

	done := make(chan error, 1)
	c.JoinAsPublisher(PublisherOptions{Room: "demo"}, func(err error) { done <- err })
	if err := <-done; err != nil {
		t.Fatalf("join: %v", err)
	}

	c.handlePublisherEvent(marshalBody(RoomEvent{
		VideoRoom:  "event",
		Publishers: []PublisherInfo{{ID: 5, Display: "alice"}, {ID: 6, Display: "bob"}},
	}))

	deadline := time.Now().Add(time.Second)
	for {
		hooks.mu.Lock()
		n := len(hooks.created)
		hooks.mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 OnCreateParticipant calls, got %d", n)
		}
		time.Sleep(time.Millisecond)
	}

	if c.Roster(5) == nil || c.Roster(6) == nil {
		t.Fatal("expected roster entries for feeds 5 and 6")
	}
}

// TestUnpublishedSelfHangsUpPublisher covers spec §4.5 step 5 / §8 scenario
// 3: a self-unpublish closes the publisher's own peer connection but stays
// joined to the room, with the subscriber feed and roster untouched.
func TestUnpublishedSelfHangsUpPublisher(t *testing.T) {
	hooks := &recordingHooks{}
	var pc *fakePeerConnection
	c := newTestClientWithPC(t, hooks, func() (handle.PeerConnection, error) {
		pc = &fakePeerConnection{}
		return pc, nil
	})

	done := make(chan error, 1)
	c.JoinAsPublisher(PublisherOptions{Room: "demo"}, func(err error) { done <- err })
	if err := <-done; err != nil {
		t.Fatalf("join: %v", err)
	}

	// Seed a peer and its subscriber-side bookkeeping so a self-unpublish
	// can be checked against "nothing else was touched".
	c.roster.Upsert(5, "bob")
	c.mu.Lock()
	c.subscribed[5] = true
	c.streamMid["0"] = 5
	c.mu.Unlock()

	self := UnpublishedID{}
	if err := json.Unmarshal([]byte("0"), &self); err != nil {
		t.Fatalf("unmarshal unpublished id: %v", err)
	}
	if !self.IsSelf() {
		t.Fatal("expected unpublished id 0 to denote self")
	}

	c.handlePublisherEvent(marshalBody(RoomEvent{VideoRoom: "event", Unpublished: &self}))

	deadline := time.Now().Add(time.Second)
	for {
		pc.mu.Lock()
		closed := pc.closed
		pc.mu.Unlock()
		if closed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected the publisher's peer connection to be closed")
		}
		time.Sleep(time.Millisecond)
	}

	if c.State() != StateJoined {
		t.Fatalf("State() = %v, want Joined (self-unpublish must not leave the room)", c.State())
	}
	if c.Roster(5) == nil {
		t.Fatal("expected the other participant's roster entry to survive a self-unpublish")
	}
	hooks.mu.Lock()
	left, removed := hooks.left, len(hooks.removed)
	hooks.mu.Unlock()
	if left != 0 {
		t.Fatalf("OnLeft calls = %d, want 0 (self-unpublish is not a leave)", left)
	}
	if removed != 0 {
		t.Fatalf("OnRemoveParticipant calls = %d, want 0 (self-unpublish must not clear the roster)", removed)
	}
}

func TestRemoveParticipantDropsRosterAndStreamMid(t *testing.T) {
	hooks := &recordingHooks{}
	c := newTestClient(t, hooks)
	c.roster.Upsert(5, "alice")
	c.subscribed[5] = true
	c.streamMid["0"] = 5

	c.removeParticipant(5)

	if c.Roster(5) != nil {
		t.Fatal("expected roster entry removed")
	}
	if _, ok := c.subscribed[5]; ok {
		t.Fatal("expected subscribed flag cleared")
	}
	if _, ok := c.streamMid["0"]; ok {
		t.Fatal("expected stream mid mapping cleared")
	}
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.removed) != 1 || hooks.removed[0] != 5 {
		t.Fatalf("OnRemoveParticipant calls = %v, want [5]", hooks.removed)
	}
}
