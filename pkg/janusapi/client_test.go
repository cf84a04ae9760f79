package janusapi

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/coderoom/janusrtc/pkg/transport"
	"github.com/coderoom/janusrtc/pkg/wire"
)

// fakeTransport is a minimal in-memory transport.Transport used to drive
// Client without a real socket. Sent frames are captured; replies are
// injected by calling deliver, which dispatches to whatever observer
// subscribed (the Client, normally under key "janusapi").
type fakeTransport struct {
	mu        sync.Mutex
	state     transport.State
	observers map[string]transport.Observer
	sent      []wire.Envelope
	sendErr   error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		state:     transport.StateOpen,
		observers: make(map[string]transport.Observer),
	}
}

func (f *fakeTransport) Connect(ctx context.Context, url string) error {
	return nil
}

func (f *fakeTransport) Disconnect() error { return nil }

func (f *fakeTransport) SendText(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	var env wire.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	f.sent = append(f.sent, env)
	return nil
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

func (f *fakeTransport) lastSent() (wire.Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return wire.Envelope{}, false
	}
	return f.sent[len(f.sent)-1], true
}

func (f *fakeTransport) deliver(env wire.Envelope) {
	data, _ := json.Marshal(env)
	f.mu.Lock()
	obs := f.observers["janusapi"]
	f.mu.Unlock()
	if obs != nil {
		obs.OnTextMessage(data)
	}
}

type fakeListener struct {
	mu          sync.Mutex
	unsolicited []wire.Envelope
	opened      int
	closed      int
	failed      int
}

func (f *fakeListener) OnUnsolicitedEvent(env *wire.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsolicited = append(f.unsolicited, *env)
}

func (f *fakeListener) OnTransportOpened() {
	f.mu.Lock()
	f.opened++
	f.mu.Unlock()
}

func (f *fakeListener) OnTransportClosed() {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
}

func (f *fakeListener) OnTransportFailed(code int, reason string) {
	f.mu.Lock()
	f.failed++
	f.mu.Unlock()
}

func newTestClient(tr *fakeTransport) (*Client, *fakeListener) {
	listener := &fakeListener{}
	c := New(Config{
		Transport: tr,
		Listener:  listener,
	})
	c.OnOpened()
	return c, listener
}

func TestClientCreateSession(t *testing.T) {
	tr := newFakeTransport()
	c, _ := newTestClient(tr)

	type result struct {
		id  uint64
		err error
	}
	done := make(chan result, 1)

	if err := c.CreateSession(func(sessionID uint64, err error) {
		done <- result{sessionID, err}
	}); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	req, ok := tr.lastSent()
	if !ok || req.Janus != wire.KindCreate {
		t.Fatalf("sent envelope = %+v, want create", req)
	}

	tr.deliver(wire.Envelope{
		Janus:       wire.KindSuccess,
		Transaction: req.Transaction,
		Data:        &wire.DataBody{ID: 42},
	})

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("callback err = %v", r.err)
		}
		if r.id != 42 {
			t.Fatalf("session id = %d, want 42", r.id)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

func TestClientSendMessageSuccessThenEvent(t *testing.T) {
	tr := newFakeTransport()
	c, _ := newTestClient(tr)

	var calls []string
	var mu sync.Mutex
	done := make(chan struct{}, 2)

	err := c.SendMessage(1, 2, map[string]string{"request": "join"}, nil, func(reply *wire.Envelope, err error) {
		mu.Lock()
		if reply != nil {
			calls = append(calls, string(reply.Janus))
		}
		mu.Unlock()
		done <- struct{}{}
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	req, ok := tr.lastSent()
	if !ok || req.Janus != wire.KindMessage {
		t.Fatalf("sent envelope = %+v, want message", req)
	}

	tr.deliver(wire.Envelope{Janus: wire.KindAck, Transaction: req.Transaction})
	tr.deliver(wire.Envelope{Janus: wire.KindSuccess, Transaction: req.Transaction})
	tr.deliver(wire.Envelope{Janus: wire.KindEvent, Transaction: req.Transaction})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("only %d of 2 callbacks fired", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 2 || calls[0] != string(wire.KindSuccess) || calls[1] != string(wire.KindEvent) {
		t.Fatalf("calls = %v, want [success event]", calls)
	}
	if c.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d, want 0", c.PendingCount())
	}
}

func TestClientUnsolicitedEventDemuxed(t *testing.T) {
	tr := newFakeTransport()
	c, listener := newTestClient(tr)
	_ = c

	tr.deliver(wire.Envelope{Janus: wire.KindWebRTCUp, Sender: 7})

	listener.mu.Lock()
	defer listener.mu.Unlock()
	if len(listener.unsolicited) != 1 || listener.unsolicited[0].Sender != 7 {
		t.Fatalf("unsolicited = %v, want one envelope with sender 7", listener.unsolicited)
	}
}

func TestClientOnFailedCancelsPending(t *testing.T) {
	tr := newFakeTransport()
	c, listener := newTestClient(tr)

	done := make(chan error, 1)
	if err := c.KeepAlive(1, func(err error) { done <- err }); err != nil {
		t.Fatalf("KeepAlive() error = %v", err)
	}

	c.OnFailed(1006, "abnormal closure")

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("callback err = nil, want a transport failure")
		}
	case <-time.After(time.Second):
		t.Fatal("callback never fired after OnFailed")
	}

	if listener.failed != 1 {
		t.Fatalf("listener.failed = %d, want 1", listener.failed)
	}

	if err := c.KeepAlive(1, func(err error) {}); err != ErrNotConnected {
		t.Fatalf("KeepAlive() after failure error = %v, want ErrNotConnected", err)
	}
}
