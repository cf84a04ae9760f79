package jwebsocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"

	"github.com/coderoom/janusrtc/pkg/transport"
)

// DefaultSubprotocol is the subprotocol Janus WebSocket gateways expect.
const DefaultSubprotocol = "janus-protocol"

// DefaultPingInterval is how often a ping is sent, whether or not other
// traffic is flowing.
const DefaultPingInterval = 20 * time.Second

// DefaultPongWait is how long to wait for a pong before treating the
// connection as failed.
const DefaultPongWait = 45 * time.Second

// Config configures a Transport.
type Config struct {
	// Subprotocol is negotiated at connect time. Defaults to
	// DefaultSubprotocol.
	Subprotocol string

	// PingInterval controls the internal keepalive cadence. Defaults to
	// DefaultPingInterval when zero; pings cannot be disabled.
	PingInterval time.Duration

	// PongWait bounds how long a pong may take to arrive after a ping
	// before the connection is declared failed. Defaults to DefaultPongWait.
	PongWait time.Duration

	// LoggerFactory creates the component's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory

	// Dialer is the underlying gorilla dialer. If nil, websocket.DefaultDialer
	// is used.
	Dialer *websocket.Dialer
}

// Transport is the gorilla/websocket-backed transport.Transport.
type Transport struct {
	config Config
	log    logging.LeveledLogger

	mu      sync.Mutex
	conn    *websocket.Conn
	state   transport.State
	writeCh chan writeRequest
	closeCh chan struct{}
	wg      sync.WaitGroup

	observers *transport.ObserverSet[transport.Observer]
}

type writeRequest struct {
	payload []byte
	result  chan error
}

// New creates a Transport. Connect must be called before SendText.
func New(config Config) *Transport {
	if config.Subprotocol == "" {
		config.Subprotocol = DefaultSubprotocol
	}
	if config.PingInterval == 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.PongWait == 0 {
		config.PongWait = DefaultPongWait
	}
	if config.Dialer == nil {
		config.Dialer = websocket.DefaultDialer
	}

	t := &Transport{
		config:    config,
		observers: transport.NewObserverSet[transport.Observer](),
	}

	if config.LoggerFactory != nil {
		t.log = config.LoggerFactory.NewLogger("jwebsocket")
	}

	return t
}

// Subscribe implements transport.Transport.
func (t *Transport) Subscribe(key string, observer transport.Observer) {
	t.observers.Add(key, observer)
}

// Unsubscribe implements transport.Transport.
func (t *Transport) Unsubscribe(key string) {
	t.observers.Remove(key)
}

// State implements transport.Transport.
func (t *Transport) State() transport.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect implements transport.Transport.
func (t *Transport) Connect(ctx context.Context, url string) error {
	t.mu.Lock()
	if t.state == transport.StateConnecting {
		t.mu.Unlock()
		return transport.ErrAlreadyConnecting
	}
	t.state = transport.StateConnecting
	t.mu.Unlock()

	dialer := *t.config.Dialer
	dialer.Subprotocols = []string{t.config.Subprotocol}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		t.mu.Lock()
		t.state = transport.StateClosed
		t.mu.Unlock()
		t.emitFailed(0, err.Error())
		return fmt.Errorf("jwebsocket: dial %s: %w", url, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.state = transport.StateOpen
	t.writeCh = make(chan writeRequest, 64)
	t.closeCh = make(chan struct{})
	t.mu.Unlock()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(t.config.PongWait))
	})
	_ = conn.SetReadDeadline(time.Now().Add(t.config.PongWait))

	t.wg.Add(2)
	go t.readLoop()
	go t.writeLoop()

	if t.log != nil {
		t.log.Infof("connected to %s", url)
	}

	t.observers.Each(func(o transport.Observer) { o.OnOpened() })
	return nil
}

// Disconnect implements transport.Transport.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	if t.state == transport.StateClosed || t.state == transport.StateIdle {
		t.mu.Unlock()
		return transport.ErrClosed
	}
	t.state = transport.StateClosed
	conn := t.conn
	closeCh := t.closeCh
	t.mu.Unlock()

	if closeCh != nil {
		select {
		case <-closeCh:
		default:
			close(closeCh)
		}
	}
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}

	t.wg.Wait()
	t.observers.Each(func(o transport.Observer) { o.OnClosed() })
	return nil
}

// SendText implements transport.Transport.
func (t *Transport) SendText(payload []byte) error {
	t.mu.Lock()
	if t.state != transport.StateOpen {
		t.mu.Unlock()
		return transport.ErrNotOpen
	}
	ch := t.writeCh
	t.mu.Unlock()

	req := writeRequest{payload: payload, result: make(chan error, 1)}
	select {
	case ch <- req:
	case <-t.closeCh:
		return transport.ErrNotOpen
	}

	return nil
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	defer t.failAndClose()

	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.closeCh:
				return
			default:
			}
			code, reason := closeDetail(err)
			t.emitFailed(code, reason)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		t.observers.Each(func(o transport.Observer) { o.OnTextMessage(data) })
	}
}

func (t *Transport) writeLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.closeCh:
			return
		case req := <-t.writeCh:
			err := t.conn.WriteMessage(websocket.TextMessage, req.payload)
			req.result <- err
			if err != nil {
				go t.emitFailed(0, err.Error())
				return
			}
		case <-ticker.C:
			_ = t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		}
	}
}

// failAndClose transitions to StateClosed and closes closeCh exactly once.
// It emits no event; emitFailed reports failures through OnFailed. It is
// safe to call from either pump; only the first caller wins.
func (t *Transport) failAndClose() {
	t.mu.Lock()
	if t.state == transport.StateClosed {
		t.mu.Unlock()
		return
	}
	t.state = transport.StateClosed
	closeCh := t.closeCh
	t.mu.Unlock()

	select {
	case <-closeCh:
	default:
		close(closeCh)
	}
}

func (t *Transport) emitFailed(code int, reason string) {
	t.failAndClose()
	if t.log != nil {
		t.log.Warnf("transport failed (code=%d): %s", code, reason)
	}
	t.observers.Each(func(o transport.Observer) { o.OnFailed(code, reason) })
}

func closeDetail(err error) (int, string) {
	if ce, ok := err.(*websocket.CloseError); ok {
		return ce.Code, ce.Text
	}
	return 0, err.Error()
}
