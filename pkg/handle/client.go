package handle

import (
	"fmt"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/coderoom/janusrtc/pkg/janusapi"
	"github.com/coderoom/janusrtc/pkg/session"
	"github.com/coderoom/janusrtc/pkg/wire"
)

// Config configures a Client.
type Config struct {
	// API is the Janus API Client used to attach, detach, and exchange
	// plugin messages. Required.
	API *janusapi.Client

	// Session owns the session id this handle attaches under, and routes
	// unsolicited envelopes back to DispatchEvent. Required.
	Session *session.Manager

	// Plugin is the Janus plugin package name, e.g.
	// "janus.plugin.videoroom".
	Plugin string

	// OpaqueID is an optional client-chosen correlation id sent with
	// attach.
	OpaqueID string

	// Hooks receives every observer callback, spec §4.4. Required.
	Hooks Hooks

	// Trickle enables per-candidate ICE delivery. Defaults to true.
	Trickle *bool

	// LoggerFactory creates the component's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

func (c Config) trickleEnabled() bool {
	return c.Trickle == nil || *c.Trickle
}

// Client is the Handle Client: generic attach/detach/hangup plugin-handle
// lifecycle, plus the Peer-Connection Session it owns once a PeerConnection
// is bound. Spec §4.4.
type Client struct {
	config Config
	log    logging.LeveledLogger

	mu        sync.Mutex
	handleID  uint64
	sessionID uint64
	attached  bool
	detaching bool
	detached  bool
	neg       *Negotiation
}

// New creates a detached Client. Call Attach to obtain a handle id.
func New(config Config) *Client {
	c := &Client{config: config}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("handle")
	}
	return c
}

// HandleID implements session.HandleEntry.
func (c *Client) HandleID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handleID
}

// Attach issues `attach` for the configured plugin and registers this
// Client with the Session Manager once a handle id comes back.
func (c *Client) Attach(cb func(err error)) error {
	sessionID := c.config.Session.SessionID()
	return c.config.API.Attach(sessionID, c.config.Plugin, c.config.OpaqueID, func(id uint64, err error) {
		if err != nil {
			c.config.Hooks.OnAttached(false)
			cb(err)
			return
		}

		c.mu.Lock()
		c.handleID = id
		c.sessionID = sessionID
		c.attached = true
		c.mu.Unlock()

		if err := c.config.Session.RegisterHandle(c); err != nil {
			cb(err)
			return
		}
		c.config.Hooks.OnAttached(true)
		cb(nil)
	})
}

// BindPeerConnection activates the Peer-Connection Session over pc. Must be
// called once, after Attach and before any offer/answer call.
func (c *Client) BindPeerConnection(pc PeerConnection) {
	c.mu.Lock()
	c.neg = NewNegotiation(pc, c, c.config.Hooks, c.config.trickleEnabled())
	c.mu.Unlock()
}

func (c *Client) negotiation() *Negotiation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.neg
}

func (c *Client) ids() (sessionID, handleID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID, c.handleID
}

// SendMessage issues a plugin `message` with body and an optional jsep,
// spec §4.2/§4.4.
func (c *Client) SendMessage(body any, jsep *wire.JSEP, cb janusapi.ReplyFunc) error {
	sessionID, handleID := c.ids()
	return c.config.API.SendMessage(sessionID, handleID, body, jsep, cb)
}

// CreateOffer builds an offer over the bound PeerConnection. cb fires once
// the SDP is ready to send (immediately if trickle, after ICE gathering
// completes otherwise).
func (c *Client) CreateOffer(resolved ResolvedMediaConfig, opts OfferAnswerOptions, cb func(sdp string, err error)) error {
	neg := c.negotiation()
	if neg == nil {
		return fmt.Errorf("handle: no peer connection bound")
	}
	return neg.CreateOffer(resolved, opts, cb)
}

// CreateAnswer mirrors CreateOffer after ApplyRemoteJSEP has applied the
// remote offer.
func (c *Client) CreateAnswer(resolved ResolvedMediaConfig, opts OfferAnswerOptions, cb func(sdp string, err error)) error {
	neg := c.negotiation()
	if neg == nil {
		return fmt.Errorf("handle: no peer connection bound")
	}
	return neg.CreateAnswer(resolved, opts, cb)
}

// ApplyRemoteJSEP applies a remote offer or answer.
func (c *Client) ApplyRemoteJSEP(jsep *wire.JSEP) error {
	if jsep == nil {
		return ErrInvalidJsep
	}
	neg := c.negotiation()
	if neg == nil {
		return fmt.Errorf("handle: no peer connection bound")
	}
	return neg.ApplyRemote(jsep.Type, jsep.SDP)
}

// SendData sends data over the named data channel, creating it on first
// use, spec §4.4.5.
func (c *Client) SendData(label string, data []byte) error {
	neg := c.negotiation()
	if neg == nil {
		return fmt.Errorf("handle: no peer connection bound")
	}
	return neg.SendData(label, data)
}

// SendDTMF inserts tones on the first audio sender, spec §4.4.5.
func (c *Client) SendDTMF(tones string, duration, interToneGap time.Duration) error {
	neg := c.negotiation()
	if neg == nil {
		return fmt.Errorf("handle: no peer connection bound")
	}
	return neg.SendDTMF(tones, duration, interToneGap)
}

// SendTrickle implements TrickleSink: forwards a local candidate (or the
// end-of-candidates marker) to the gateway as a `trickle` request.
func (c *Client) SendTrickle(candidate wire.CandidateWire) {
	sessionID, handleID := c.ids()
	_ = c.config.API.SendTrickle(sessionID, handleID, candidate, func(err error) {
		if err != nil && c.log != nil {
			c.log.Warnf("trickle failed: %v", err)
		}
	})
}

// Hangup tears down the Peer-Connection Session locally and issues `hangup`
// to the gateway. The handle itself stays attached.
func (c *Client) Hangup(cb func(err error)) error {
	if neg := c.negotiation(); neg != nil {
		neg.Hangup()
	}
	sessionID, handleID := c.ids()
	return c.config.API.Hangup(sessionID, handleID, cb)
}

// Detach releases local resources first and then issues `detach`, so the
// release happens whatever the gateway replies (spec §4.3's
// resource-release guarantee). It is guarded against
// re-entrancy: neg.Hangup() below runs its on_cleanup hook synchronously,
// and a caller whose hook routes back into Detach (e.g. the VideoRoom
// Client's teardown) must not see this method run twice, which would send
// a second `detach` to the gateway and double-fire OnDetached (spec §8:
// exactly one on_detached per lifetime).
func (c *Client) Detach(cb func(err error)) error {
	c.mu.Lock()
	if c.detaching || c.detached {
		c.mu.Unlock()
		return ErrClosed
	}
	c.detaching = true
	c.mu.Unlock()

	if neg := c.negotiation(); neg != nil {
		neg.Hangup()
	}

	sessionID, handleID := c.ids()
	c.config.Session.UnregisterHandle(handleID)

	c.mu.Lock()
	c.detached = true
	c.mu.Unlock()

	return c.config.API.Detach(sessionID, handleID, func(err error) {
		c.config.Hooks.OnDetached()
		cb(err)
	})
}

// DetachLocal implements session.LocalDetacher: the Session Manager's
// destroy path iterates the registry issuing detach with no_request=true
// (spec §4.3), so this releases local resources and fires on_cleanup then
// on_detached without sending a `detach` request. Guarded by the same
// detaching/detached flags as Detach so a handle never sees on_detached
// twice regardless of which path reaches it first.
func (c *Client) DetachLocal() {
	c.mu.Lock()
	if c.detaching || c.detached {
		c.mu.Unlock()
		return
	}
	c.detaching = true
	c.detached = true
	c.mu.Unlock()

	if neg := c.negotiation(); neg != nil {
		neg.Hangup()
	}
	c.config.Hooks.OnDetached()
}

// InvalidateSession implements session.Invalidatable: the underlying
// transport session was lost, so the Peer-Connection Session is no longer
// valid and must be torn down before further use (spec §4.3).
func (c *Client) InvalidateSession() {
	if neg := c.negotiation(); neg != nil {
		neg.Hangup()
	}
}

// DispatchEvent implements session.EventDispatcher: translates one
// unsolicited envelope addressed to this handle into the matching Hooks
// callback.
func (c *Client) DispatchEvent(env *wire.Envelope) {
	switch env.Janus {
	case wire.KindWebRTCUp:
		c.config.Hooks.OnWebRTCState(true, "")

	case wire.KindHangup:
		if neg := c.negotiation(); neg != nil {
			neg.Hangup()
		}
		c.config.Hooks.OnWebRTCState(false, env.Reason)
		c.config.Hooks.OnHangup()

	case wire.KindMedia:
		receiving := env.Receiving != nil && *env.Receiving
		c.config.Hooks.OnMediaState(env.Type, receiving, env.Mid)

	case wire.KindSlowLink:
		uplink := env.Uplink != nil && *env.Uplink
		c.config.Hooks.OnSlowLink(uplink, env.Lost, env.Mid)

	case wire.KindDetached:
		c.mu.Lock()
		c.detached = true
		c.mu.Unlock()
		c.config.Hooks.OnDetached()

	case wire.KindTimeout:
		c.config.Hooks.OnTimeout()

	case wire.KindTrickle:
		candidate, err := decodeCandidate(env)
		if err != nil {
			if c.log != nil {
				c.log.Warnf("dropping unparseable trickle: %v", err)
			}
			return
		}
		if neg := c.negotiation(); neg != nil {
			neg.OnRemoteTrickle(candidate)
		}
		c.config.Hooks.OnTrickle(candidate)

	case wire.KindError:
		reason := ""
		if env.Error != nil {
			reason = env.Error.Reason
		}
		c.config.Hooks.OnError(reason)

	default:
		var body []byte
		if env.PluginData != nil {
			body = env.PluginData.Data
		}
		c.config.Hooks.OnMessage(body, env.Jsep)
	}
}

func decodeCandidate(env *wire.Envelope) (wire.CandidateWire, error) {
	var candidate wire.CandidateWire
	if len(env.Candidate) == 0 {
		return candidate, fmt.Errorf("handle: trickle envelope missing candidate")
	}
	if err := (wire.StdCodec{}).Unmarshal(env.Candidate, &candidate); err != nil {
		return candidate, fmt.Errorf("handle: unmarshal candidate: %w", err)
	}
	return candidate, nil
}
