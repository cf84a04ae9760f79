package janusapi

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/coderoom/janusrtc/pkg/transport"
	"github.com/coderoom/janusrtc/pkg/wire"
)

// EventListener receives transport lifecycle notifications and unsolicited
// server events demultiplexed by sender (handle id). The Session Manager is
// the normal implementation.
type EventListener interface {
	// OnUnsolicitedEvent is called for every inbound envelope that carries
	// no matching pending transaction. env.Sender identifies the target
	// handle (0 if absent, e.g. a session-level keepalive echo).
	OnUnsolicitedEvent(env *wire.Envelope)

	// OnTransportOpened mirrors transport.Observer.OnOpened.
	OnTransportOpened()

	// OnTransportClosed mirrors transport.Observer.OnClosed.
	OnTransportClosed()

	// OnTransportFailed mirrors transport.Observer.OnFailed. Every pending
	// request has already been cancelled with *wire.TransportFailure by the
	// time this is called.
	OnTransportFailed(code int, reason string)
}

// Config configures a Client.
type Config struct {
	// Transport is the underlying byte transport. Required.
	Transport transport.Transport

	// Codec (de)serializes envelopes. Defaults to wire.StdCodec{}.
	Codec wire.Codec

	// Listener receives unsolicited events and transport lifecycle
	// notifications. Required.
	Listener EventListener

	// LoggerFactory creates the component's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Client encodes and decodes Janus envelopes on top of a transport.Transport,
// correlating requests with replies by transaction id.
type Client struct {
	config  Config
	log     logging.LeveledLogger
	pending *PendingTable

	mu        sync.RWMutex
	connected bool
}

// New creates a Client. It subscribes itself to config.Transport immediately;
// Connect still has to be called on the transport separately (the Client
// does not own dialing).
func New(config Config) *Client {
	if config.Codec == nil {
		config.Codec = wire.StdCodec{}
	}

	c := &Client{
		config:  config,
		pending: NewPendingTable(),
	}

	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("janusapi")
	}

	config.Transport.Subscribe("janusapi", c)
	return c
}

// SetListener (re)assigns the component notified of transport lifecycle
// events and unsolicited envelopes. Exists because the listener (normally a
// *session.Manager) typically needs a reference to this Client to construct
// itself, so the two cannot always be wired in one shot via Config.
func (c *Client) SetListener(l EventListener) {
	c.mu.Lock()
	c.config.Listener = l
	c.mu.Unlock()
}

func (c *Client) listener() EventListener {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.Listener
}

// --- transport.Observer ---

// OnOpened implements transport.Observer.
func (c *Client) OnOpened() {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	if l := c.listener(); l != nil {
		l.OnTransportOpened()
	}
}

// OnClosed implements transport.Observer.
func (c *Client) OnClosed() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.pending.CancelAll(wire.ErrCancelled)
	if l := c.listener(); l != nil {
		l.OnTransportClosed()
	}
}

// OnFailed implements transport.Observer.
func (c *Client) OnFailed(code int, reason string) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.pending.CancelAll(&wire.TransportFailure{Code: code, Reason: reason})
	if l := c.listener(); l != nil {
		l.OnTransportFailed(code, reason)
	}
}

// OnTextMessage implements transport.Observer.
func (c *Client) OnTextMessage(payload []byte) {
	var env wire.Envelope
	if err := c.config.Codec.Unmarshal(payload, &env); err != nil {
		if c.log != nil {
			c.log.Warnf("dropping unparseable envelope: %v", err)
		}
		return
	}

	if c.pending.Resolve(&env) {
		return
	}

	if l := c.listener(); l != nil {
		l.OnUnsolicitedEvent(&env)
	}
}

// --- request/response operations ---

func (c *Client) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) newTransaction() string {
	return uuid.NewString()
}

// send encodes env, registers a pending entry for its transaction, and
// writes it to the transport. wantsPluginReply controls the ack-vs-final
// rule per entry (see PendingTable).
func (c *Client) send(env wire.Envelope, wantsPluginReply bool, cb ReplyFunc) error {
	if !c.isConnected() {
		return ErrNotConnected
	}

	data, err := c.config.Codec.Marshal(env)
	if err != nil {
		return fmt.Errorf("janusapi: marshal: %w", err)
	}

	if err := c.pending.Add(env.Transaction, wantsPluginReply, DefaultRequestTimeout, cb); err != nil {
		return err
	}

	if err := c.config.Transport.SendText(data); err != nil {
		c.pending.Forget(env.Transaction)
		return fmt.Errorf("janusapi: send: %w", err)
	}
	return nil
}

// CreateSession issues `create`. cb receives the new session id.
func (c *Client) CreateSession(cb func(sessionID uint64, err error)) error {
	env := wire.NewRequest(wire.KindCreate, c.newTransaction(), 0, 0)
	return c.send(env, false, func(reply *wire.Envelope, err error) {
		if err != nil {
			cb(0, err)
			return
		}
		if reply.Data == nil {
			cb(0, fmt.Errorf("%w: create_session reply missing data.id", wire.ErrParseError))
			return
		}
		cb(reply.Data.ID, nil)
	})
}

// ReconnectSession issues `claim` to resume an existing session id after a
// fresh transport connection.
func (c *Client) ReconnectSession(sessionID uint64, cb func(err error)) error {
	env := wire.NewRequest(wire.KindClaim, c.newTransaction(), sessionID, 0)
	return c.send(env, false, func(reply *wire.Envelope, err error) {
		cb(err)
	})
}

// DestroySession issues `destroy` for the session.
func (c *Client) DestroySession(sessionID uint64, cb func(err error)) error {
	env := wire.NewRequest(wire.KindDestroy, c.newTransaction(), sessionID, 0)
	return c.send(env, false, func(reply *wire.Envelope, err error) {
		cb(err)
	})
}

// KeepAlive issues `keepalive` for the session.
func (c *Client) KeepAlive(sessionID uint64, cb func(err error)) error {
	env := wire.NewRequest(wire.KindKeepAlive, c.newTransaction(), sessionID, 0)
	return c.send(env, false, func(reply *wire.Envelope, err error) {
		cb(err)
	})
}

// Attach issues `attach` for pluginName under sessionID. cb receives the new
// handle id.
func (c *Client) Attach(sessionID uint64, pluginName, opaqueID string, cb func(handleID uint64, err error)) error {
	env := wire.NewRequest(wire.KindAttach, c.newTransaction(), sessionID, 0)
	env.Plugin = pluginName
	env.OpaqueID = opaqueID

	return c.send(env, false, func(reply *wire.Envelope, err error) {
		if err != nil {
			cb(0, err)
			return
		}
		if reply.Data == nil {
			cb(0, fmt.Errorf("%w: attach reply missing data.id", wire.ErrParseError))
			return
		}
		cb(reply.Data.ID, nil)
	})
}

// Detach issues `detach` for handleID.
func (c *Client) Detach(sessionID, handleID uint64, cb func(err error)) error {
	env := wire.NewRequest(wire.KindDetach, c.newTransaction(), sessionID, handleID)
	return c.send(env, false, func(reply *wire.Envelope, err error) {
		cb(err)
	})
}

// Hangup issues `hangup` for handleID.
func (c *Client) Hangup(sessionID, handleID uint64, cb func(err error)) error {
	env := wire.NewRequest(wire.KindHangup, c.newTransaction(), sessionID, handleID)
	return c.send(env, false, func(reply *wire.Envelope, err error) {
		cb(err)
	})
}

// SendMessage issues a plugin `message` with the given body and optional
// JSEP. cb may be called twice: once for the immediate reply (`ack` is never
// terminal here) and once more for a later `event` sharing the same
// transaction, per spec §4.2.
func (c *Client) SendMessage(sessionID, handleID uint64, body any, jsep *wire.JSEP, cb ReplyFunc) error {
	bodyData, err := c.config.Codec.Marshal(body)
	if err != nil {
		return fmt.Errorf("janusapi: marshal body: %w", err)
	}

	env := wire.NewRequest(wire.KindMessage, c.newTransaction(), sessionID, handleID)
	env.Body = bodyData
	env.Jsep = jsep

	return c.send(env, true, cb)
}

// SendTrickle issues `trickle` carrying a single candidate, or the
// end-of-candidates marker when candidate.Completed is true.
func (c *Client) SendTrickle(sessionID, handleID uint64, candidate wire.CandidateWire, cb func(err error)) error {
	env := wire.NewRequest(wire.KindTrickle, c.newTransaction(), sessionID, handleID)
	candidateData, err := c.config.Codec.Marshal(candidate)
	if err != nil {
		return fmt.Errorf("janusapi: marshal candidate: %w", err)
	}
	env.Candidate = candidateData

	return c.send(env, false, func(reply *wire.Envelope, err error) {
		cb(err)
	})
}

// Close cancels every pending request with wire.ErrCancelled. Does not
// touch the underlying transport.
func (c *Client) Close() {
	c.pending.CancelAll(wire.ErrCancelled)
}

// PendingCount reports the number of in-flight requests. Exposed for tests
// and diagnostics.
func (c *Client) PendingCount() int {
	return c.pending.Count()
}
