package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pion/logging"

	"github.com/coderoom/janusrtc/pkg/eventloop"
	"github.com/coderoom/janusrtc/pkg/janusapi"
	"github.com/coderoom/janusrtc/pkg/transport"
	"github.com/coderoom/janusrtc/pkg/wire"
)

// DefaultHeartbeatInterval is how often a keepalive is sent while Up.
const DefaultHeartbeatInterval = 5 * time.Second

// Config configures a Manager.
type Config struct {
	// Transport is dialed by Start and redialed on reconnect. Required.
	Transport transport.Transport

	// URL is the Janus WebSocket gateway address passed to Transport.Connect.
	URL string

	// Client is the API Client layered on Transport. Required. The Manager
	// subscribes itself as Client's EventListener.
	Client *janusapi.Client

	// Loop serializes per-handle event dispatch. Required.
	Loop *eventloop.Loop

	// HeartbeatInterval defaults to DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration

	// NewBackOff returns a fresh backoff policy for each reconnect attempt
	// sequence. Defaults to an unbounded exponential backoff.
	NewBackOff func() backoff.BackOff

	// OnStateChange, if set, is called after every successful transition.
	OnStateChange func(from, to State)

	// LoggerFactory creates the component's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Manager owns one Janus session id, its heartbeat, its handle registry,
// and the reconnect sequence after a transport failure. Spec §4.3.
type Manager struct {
	config Config
	log    logging.LeveledLogger
	reg    *registry

	mu             sync.Mutex
	state          State
	sessionID      uint64
	heartbeat      *time.Timer
	closed         bool
	sessionReadyCh chan error
}

// New creates a Manager in StateConnecting. Call Start to dial the
// transport and create the session.
func New(config Config) *Manager {
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if config.NewBackOff == nil {
		config.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 16 * time.Second
			b.MaxElapsedTime = 0 // retry forever until Close
			return b
		}
	}

	m := &Manager{
		config: config,
		reg:    newRegistry(),
		state:  StateConnecting,
	}
	if config.LoggerFactory != nil {
		m.log = config.LoggerFactory.NewLogger("session")
	}
	config.Client.SetListener(m)
	return m
}

// SessionID returns the current session id, or 0 before the session is Up.
func (m *Manager) SessionID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RegisterHandle adds h to the registry so unsolicited events addressed to
// its handle id are routed to it.
func (m *Manager) RegisterHandle(h HandleEntry) error {
	return m.reg.Add(h)
}

// UnregisterHandle removes h's entry from the registry.
func (m *Manager) UnregisterHandle(id uint64) {
	m.reg.Remove(id)
	m.config.Loop.Forget(handleKey(id))
}

// Start dials the transport and begins the initial create_session sequence.
// Only valid from StateConnecting.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateConnecting {
		m.mu.Unlock()
		return ErrAlreadyStarting
	}
	m.mu.Unlock()

	go m.connectSequence(ctx)
	return nil
}

// Close tears down every registered handle locally, destroys the session on
// the server if it is currently Up, and moves to StateClosed. A Close from
// StateDown short-circuits straight to local cleanup, per spec §4.3.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.closed = true
	wasUp := m.state == StateUp
	sessionID := m.sessionID
	m.stopHeartbeatLocked()
	from := m.state
	m.state = StateClosed
	m.mu.Unlock()

	m.notifyState(from, StateClosed)

	for _, h := range m.reg.Clear() {
		if ld, ok := h.(LocalDetacher); ok {
			ld.DetachLocal()
		}
		m.config.Loop.Forget(handleKey(h.HandleID()))
	}

	if wasUp {
		done := make(chan struct{})
		if err := m.config.Client.DestroySession(sessionID, func(error) { close(done) }); err == nil {
			<-done
		}
	}

	m.config.Loop.Close()
	return nil
}

// connectSequence retries (Connect transport) -> (create or reconnect
// session) until it succeeds or the Manager is closed, with backoff between
// attempts. It is itself idempotent to re-entry from handleTransportDown.
func (m *Manager) connectSequence(ctx context.Context) {
	b := backoff.WithContext(m.config.NewBackOff(), ctx)

	_ = backoff.Retry(func() error {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return backoff.Permanent(ErrClosed)
		}
		m.mu.Unlock()

		if m.config.Transport.State() != transport.StateOpen {
			if err := m.config.Transport.Connect(ctx, m.config.URL); err != nil {
				return err
			}
			// Connect emits OnOpened synchronously before returning, so the
			// create/reconnect attempt has already been issued by the time
			// we get here; wait for it to settle.
			return m.awaitSessionReady()
		}

		// Transport is already open from a prior attempt (e.g. dial
		// succeeded but create_session was rejected): retry the
		// create/reconnect handshake directly without redialing.
		m.OnTransportOpened()
		return m.awaitSessionReady()
	}, b)
}

// awaitSessionReady blocks until the current CreatingSession attempt
// resolves, returning its error (if any) so connectSequence's backoff loop
// can decide whether to retry.
func (m *Manager) awaitSessionReady() error {
	m.mu.Lock()
	ch := m.sessionReadyCh
	m.mu.Unlock()
	if ch == nil {
		return nil
	}
	return <-ch
}

func handleKey(id uint64) string {
	return "handle:" + strconv.FormatUint(id, 10)
}

func (m *Manager) notifyState(from, to State) {
	if m.config.OnStateChange != nil {
		m.config.OnStateChange(from, to)
	}
	if m.log != nil {
		m.log.Infof("session state %s -> %s", from, to)
	}
}

func (m *Manager) stopHeartbeatLocked() {
	if m.heartbeat != nil {
		m.heartbeat.Stop()
		m.heartbeat = nil
	}
}

func (m *Manager) startHeartbeat() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateUp || m.closed {
		return
	}
	m.stopHeartbeatLocked()
	m.heartbeat = time.AfterFunc(m.config.HeartbeatInterval, m.sendHeartbeat)
}

func (m *Manager) sendHeartbeat() {
	m.mu.Lock()
	if m.state != StateUp || m.closed {
		m.mu.Unlock()
		return
	}
	sessionID := m.sessionID
	m.mu.Unlock()

	_ = m.config.Client.KeepAlive(sessionID, func(err error) {
		if err != nil && m.log != nil {
			m.log.Warnf("keepalive failed: %v", err)
		}
		// A keepalive failure is reported, not acted on directly: the
		// transport's own OnFailed/OnClosed callbacks drive the Down
		// transition if the connection is actually gone.
	})

	m.mu.Lock()
	stillUp := m.state == StateUp && !m.closed
	m.mu.Unlock()
	if stillUp {
		m.startHeartbeat()
	}
}

// --- janusapi.EventListener ---

// OnTransportOpened implements janusapi.EventListener.
func (m *Manager) OnTransportOpened() {
	m.mu.Lock()
	state := m.state
	if state != StateConnecting && state != StateDown {
		m.mu.Unlock()
		return
	}
	if err := transition(state, StateCreatingSession); err != nil {
		m.mu.Unlock()
		return
	}
	from := state
	m.state = StateCreatingSession
	ready := make(chan error, 1)
	m.sessionReadyCh = ready
	reconnect := from == StateDown
	sessionID := m.sessionID
	m.mu.Unlock()

	m.notifyState(from, StateCreatingSession)

	if reconnect {
		m.config.Client.ReconnectSession(sessionID, func(err error) {
			m.finishCreatingSession(err, sessionID, ready)
		})
		return
	}

	m.config.Client.CreateSession(func(id uint64, err error) {
		m.finishCreatingSession(err, id, ready)
	})
}

func (m *Manager) finishCreatingSession(err error, sessionID uint64, ready chan error) {
	m.mu.Lock()
	if m.state != StateCreatingSession || m.closed {
		m.mu.Unlock()
		ready <- err
		return
	}
	if err != nil {
		m.state = StateDown
		m.mu.Unlock()
		m.notifyState(StateCreatingSession, StateDown)
		ready <- err
		return
	}
	m.sessionID = sessionID
	m.state = StateUp
	m.mu.Unlock()

	m.notifyState(StateCreatingSession, StateUp)
	m.startHeartbeat()
	ready <- nil
}

// OnTransportClosed implements janusapi.EventListener.
func (m *Manager) OnTransportClosed() {
	m.handleTransportDown()
}

// OnTransportFailed implements janusapi.EventListener.
func (m *Manager) OnTransportFailed(code int, reason string) {
	m.handleTransportDown()
}

func (m *Manager) handleTransportDown() {
	m.mu.Lock()
	if m.closed || m.state == StateDown || m.state == StateConnecting {
		m.mu.Unlock()
		return
	}
	from := m.state
	if err := transition(from, StateDown); err != nil {
		m.mu.Unlock()
		return
	}
	m.state = StateDown
	m.stopHeartbeatLocked()
	m.mu.Unlock()

	m.notifyState(from, StateDown)

	// Handles stay registered across a reconnect; only the peer-connection
	// session inside each is now invalid and must be torn down by its owner
	// before further use (spec §4.3).
	m.reg.ForEach(func(h HandleEntry) {
		if inv, ok := h.(Invalidatable); ok {
			inv.InvalidateSession()
		}
	})

	go m.connectSequence(context.Background())
}

// Invalidatable is implemented by registry entries that hold negotiation
// state tied to the transport connection. pkg/handle.Client implements this
// to tear down its Peer-Connection Session when the session drops.
type Invalidatable interface {
	InvalidateSession()
}

// LocalDetacher is implemented by registry entries that can release their
// local resources without a server round trip — spec §4.3's "detach with
// no_request=true" used by destroy. pkg/handle.Client implements this by
// delivering on_cleanup then on_detached without sending a wire request.
type LocalDetacher interface {
	DetachLocal()
}

// OnUnsolicitedEvent implements janusapi.EventListener. It routes env to the
// registered handle by Sender, serialized through the event loop so that no
// two hooks for the same handle run concurrently (spec §4.3).
func (m *Manager) OnUnsolicitedEvent(env *wire.Envelope) {
	h := m.reg.Find(env.Sender)
	if h == nil {
		if m.log != nil {
			m.log.Warnf("unsolicited event for unknown handle %d: %s", env.Sender, env.Janus)
		}
		return
	}

	dispatcher, ok := h.(EventDispatcher)
	if !ok {
		return
	}

	m.config.Loop.Post(handleKey(env.Sender), func() {
		dispatcher.DispatchEvent(env)
	})
}

// EventDispatcher is implemented by registry entries that want unsolicited
// envelopes delivered through the serialized event loop. pkg/handle.Client
// implements this.
type EventDispatcher interface {
	HandleEntry
	DispatchEvent(env *wire.Envelope)
}
