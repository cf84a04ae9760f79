package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/coderoom/janusrtc/pkg/eventloop"
	"github.com/coderoom/janusrtc/pkg/janusapi"
	"github.com/coderoom/janusrtc/pkg/transport"
	"github.com/coderoom/janusrtc/pkg/wire"
)

// fakeTransport is a minimal in-memory transport.Transport that echoes
// create_session, claim, keepalive and destroy requests with a canned reply, so the
// Manager's state machine can be exercised without a real gateway.
type fakeTransport struct {
	mu        sync.Mutex
	state     transport.State
	observers map[string]transport.Observer
	sent      []wire.Envelope
	connectN  int
	failNextN int // Connect fails this many times before succeeding
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		state:     transport.StateIdle,
		observers: make(map[string]transport.Observer),
	}
}

func (f *fakeTransport) Connect(ctx context.Context, url string) error {
	f.mu.Lock()
	f.connectN++
	if f.failNextN > 0 {
		f.failNextN--
		f.mu.Unlock()
		return transport.ErrNotOpen
	}
	f.state = transport.StateOpen
	obs := f.observers
	f.mu.Unlock()

	for _, o := range obs {
		o.OnOpened()
	}
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	f.state = transport.StateClosed
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) SendText(payload []byte) error {
	var env wire.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}

	f.mu.Lock()
	f.sent = append(f.sent, env)
	obs := f.observers
	f.mu.Unlock()

	go f.autoReply(env, obs)
	return nil
}

// autoReply answers create with a success reply carrying a stable session
// id, claim with a bare success, and keepalive/destroy with an ack,
// standing in for a real Janus gateway.
func (f *fakeTransport) autoReply(req wire.Envelope, obs map[string]transport.Observer) {
	var reply wire.Envelope
	switch req.Janus {
	case wire.KindCreate:
		reply = wire.Envelope{Janus: wire.KindSuccess, Transaction: req.Transaction, Data: &wire.DataBody{ID: 111}}
	case wire.KindClaim:
		reply = wire.Envelope{Janus: wire.KindSuccess, Transaction: req.Transaction}
	case wire.KindKeepAlive, wire.KindDestroy:
		reply = wire.Envelope{Janus: wire.KindAck, Transaction: req.Transaction}
	default:
		return
	}
	data, _ := json.Marshal(reply)
	for _, o := range obs {
		o.OnTextMessage(data)
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

func (f *fakeTransport) simulateFailure() {
	f.mu.Lock()
	f.state = transport.StateClosed
	obs := f.observers
	f.mu.Unlock()
	for _, o := range obs {
		o.OnFailed(1006, "abnormal closure")
	}
}

func fastBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 20 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

func newTestManager(t *testing.T, tr *fakeTransport) *Manager {
	t.Helper()
	client := janusapi.New(janusapi.Config{Transport: tr})
	loop := eventloop.New(eventloop.Config{})
	changed := make(chan struct{}, 64)
	mgr := New(Config{
		Transport:         tr,
		URL:               "ws://example.invalid/janus",
		Client:            client,
		Loop:              loop,
		HeartbeatInterval: 30 * time.Millisecond,
		NewBackOff:        fastBackOff,
		OnStateChange:     func(from, to State) { changed <- struct{}{} },
	})
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func waitForState(t *testing.T, mgr *Manager, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if mgr.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", mgr.State(), want)
}

func TestManagerStartReachesUp(t *testing.T) {
	tr := newFakeTransport()
	mgr := newTestManager(t, tr)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitForState(t, mgr, StateUp, time.Second)

	if mgr.SessionID() != 111 {
		t.Fatalf("SessionID() = %d, want 111", mgr.SessionID())
	}

	if err := mgr.Start(context.Background()); err != ErrAlreadyStarting {
		t.Fatalf("second Start() error = %v, want ErrAlreadyStarting", err)
	}
}

func TestManagerReconnectsAfterFailure(t *testing.T) {
	tr := newFakeTransport()
	mgr := newTestManager(t, tr)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, mgr, StateUp, time.Second)

	tr.simulateFailure()
	waitForState(t, mgr, StateDown, time.Second)

	// The reconnect sequence redials and re-claims the same session id.
	waitForState(t, mgr, StateUp, 2*time.Second)
	if mgr.SessionID() != 111 {
		t.Fatalf("SessionID() after reconnect = %d, want 111 (unchanged)", mgr.SessionID())
	}
}

func TestManagerRegisterHandleRoutesUnsolicitedEvent(t *testing.T) {
	tr := newFakeTransport()
	mgr := newTestManager(t, tr)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, mgr, StateUp, time.Second)

	received := make(chan *wire.Envelope, 1)
	h := &dispatchingHandle{id: 7, onEvent: func(env *wire.Envelope) { received <- env }}
	if err := mgr.RegisterHandle(h); err != nil {
		t.Fatalf("RegisterHandle() error = %v", err)
	}

	mgr.OnUnsolicitedEvent(&wire.Envelope{Janus: wire.KindWebRTCUp, Sender: 7})

	select {
	case env := <-received:
		if env.Janus != wire.KindWebRTCUp {
			t.Fatalf("dispatched envelope = %+v, want webrtcup", env)
		}
	case <-time.After(time.Second):
		t.Fatal("event never dispatched to handle")
	}
}

type dispatchingHandle struct {
	id      uint64
	onEvent func(*wire.Envelope)
}

func (h *dispatchingHandle) HandleID() uint64 { return h.id }
func (h *dispatchingHandle) DispatchEvent(env *wire.Envelope) {
	h.onEvent(env)
}

// localDetachHandle records whether DetachLocal was invoked, standing in
// for pkg/handle.Client's on_cleanup/on_detached delivery.
type localDetachHandle struct {
	id       uint64
	detached bool
}

func (h *localDetachHandle) HandleID() uint64 { return h.id }
func (h *localDetachHandle) DetachLocal()     { h.detached = true }

func TestManagerCloseDetachesRegisteredHandlesLocally(t *testing.T) {
	tr := newFakeTransport()
	mgr := newTestManager(t, tr)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, mgr, StateUp, time.Second)

	h1 := &localDetachHandle{id: 1}
	h2 := &localDetachHandle{id: 2}
	if err := mgr.RegisterHandle(h1); err != nil {
		t.Fatalf("RegisterHandle(h1) error = %v", err)
	}
	if err := mgr.RegisterHandle(h2); err != nil {
		t.Fatalf("RegisterHandle(h2) error = %v", err)
	}

	if err := mgr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !h1.detached || !h2.detached {
		t.Fatalf("DetachLocal not delivered to every registered handle: h1=%v h2=%v", h1.detached, h2.detached)
	}
}
