package videoroom

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/logging"

	"github.com/coderoom/janusrtc/pkg/handle"
	"github.com/coderoom/janusrtc/pkg/janusapi"
	"github.com/coderoom/janusrtc/pkg/session"
	"github.com/coderoom/janusrtc/pkg/wire"
)

const pluginName = "janus.plugin.videoroom"

// Config configures a Client.
type Config struct {
	// API is the Janus API Client shared with every other component.
	// Required.
	API *janusapi.Client

	// Session owns the session this room's two handles attach under.
	// Required.
	Session *session.Manager

	// NewPeerConnection creates a fresh PeerConnection for a handle about
	// to start negotiating. Required.
	NewPeerConnection func() (handle.PeerConnection, error)

	// MediaSource creates the local audio/video tracks captured for the
	// publisher path. Required.
	MediaSource handle.MediaSource

	// Hooks receives every room-level event, spec §4.5. Required.
	Hooks Hooks

	// Trickle enables per-candidate ICE delivery on both handles. Defaults
	// to true.
	Trickle *bool

	// LoggerFactory creates the component's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Client is the VideoRoom Client: room-level orchestrator owning one
// publisher handle.Client and one subscriber handle.Client, spec §4.5.
type Client struct {
	config Config
	log    logging.LeveledLogger

	mu         sync.Mutex
	state      RoomState
	room       string
	myFeedID   uint64
	privateID  uint64
	publisher  *handle.Client
	subscriber *handle.Client
	subscribed map[uint64]bool    // feed ids already requested on the subscriber handle
	streamMid  map[string]uint64  // sdp mid -> feed id, from the subscriber's stream table
	roster     *roster
}

// New creates an unjoined Client.
func New(config Config) *Client {
	c := &Client{
		config:     config,
		state:      StateOutside,
		subscribed: make(map[uint64]bool),
		streamMid:  make(map[string]uint64),
		roster:     newRoster(),
	}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("videoroom")
	}
	return c
}

// State reports the current room-membership state.
func (c *Client) State() RoomState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Roster returns the participant currently registered under feedID, or nil.
func (c *Client) Roster(feedID uint64) *Participant {
	return c.roster.Find(feedID)
}

func (c *Client) setState(to RoomState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := transition(c.state, to); err != nil {
		return err
	}
	c.state = to
	return nil
}

// PublisherOptions configures JoinAsPublisher.
type PublisherOptions struct {
	Room    string
	Display string
	PIN     string
	Bitrate int
}

// JoinAsPublisher runs the publisher flow, spec §4.5 steps 1-3: attach,
// join, capture local media, and configure with the resulting offer. cb
// fires once the publisher's peer connection reaches Stable.
func (c *Client) JoinAsPublisher(opts PublisherOptions, cb func(err error)) error {
	c.mu.Lock()
	if c.state != StateOutside {
		c.mu.Unlock()
		return ErrAlreadyJoining
	}
	c.state = StateJoining
	c.room = opts.Room
	c.mu.Unlock()

	c.publisher = handle.New(handle.Config{
		API:           c.config.API,
		Session:       c.config.Session,
		Plugin:        pluginName,
		Hooks:         &publisherHooks{room: c},
		Trickle:       c.config.Trickle,
		LoggerFactory: c.config.LoggerFactory,
	})

	return c.publisher.Attach(func(err error) {
		if err != nil {
			c.failJoin(err, cb)
			return
		}
		c.joinPublisher(opts, cb)
	})
}

func (c *Client) joinPublisher(opts PublisherOptions, cb func(err error)) {
	body := NewJoinPublisherBody(opts.Room, opts.Display, opts.PIN)
	err := c.publisher.SendMessage(body, nil, func(env *wire.Envelope, err error) {
		if err != nil {
			c.failJoin(err, cb)
			return
		}
		var joined JoinedEvent
		if perr := decodePluginData(env, &joined); perr != nil {
			c.failJoin(perr, cb)
			return
		}

		c.mu.Lock()
		c.myFeedID = joined.ID
		c.privateID = joined.PrivateID
		c.mu.Unlock()
		if err := c.setState(StateJoined); err != nil {
			c.failJoin(err, cb)
			return
		}
		c.config.Hooks.OnJoined(joined.ID, joined.PrivateID)

		for _, p := range joined.Publishers {
			c.addParticipant(p)
		}

		c.capturePublish(opts, cb)
	})
	if err != nil {
		c.failJoin(err, cb)
	}
}

func (c *Client) capturePublish(opts PublisherOptions, cb func(err error)) {
	pc, err := c.config.NewPeerConnection()
	if err != nil {
		c.failJoin(err, cb)
		return
	}
	c.publisher.BindPeerConnection(pc)

	audio, video, err := c.config.MediaSource.CreateLocalMediaStream()
	if err != nil {
		c.failJoin(err, cb)
		return
	}

	plan, err := handle.MediaConfigResolver{}.Resolve(handle.CurrentMedia{}, handle.MediaConfig{
		Audio: handle.StreamRequest{Send: true, Recv: false, Action: handle.ActionAdd, Track: audio},
		Video: handle.StreamRequest{Send: true, Recv: false, Action: handle.ActionAdd, Track: video},
	})
	if err != nil {
		c.failJoin(err, cb)
		return
	}

	err = c.publisher.CreateOffer(plan, handle.OfferAnswerOptions{}, func(sdp string, err error) {
		if err != nil {
			c.failJoin(err, cb)
			return
		}
		c.sendConfigure(opts, sdp, cb)
	})
	if err != nil {
		c.failJoin(err, cb)
	}
}

func (c *Client) sendConfigure(opts PublisherOptions, sdp string, cb func(err error)) {
	body := NewConfigureBody(opts.Bitrate, opts.Display)
	offer := &wire.JSEP{Type: wire.JSEPOffer, SDP: sdp}
	err := c.publisher.SendMessage(body, offer, func(env *wire.Envelope, err error) {
		if err != nil {
			c.failJoin(err, cb)
			return
		}
		if env.Jsep != nil {
			if aerr := c.publisher.ApplyRemoteJSEP(env.Jsep); aerr != nil {
				c.failJoin(aerr, cb)
				return
			}
		}
		cb(nil)
	})
	if err != nil {
		c.failJoin(err, cb)
	}
}

func (c *Client) failJoin(err error, cb func(error)) {
	c.mu.Lock()
	c.state = StateOutside
	c.mu.Unlock()
	cb(err)
}

// Republish restarts the publisher's media after a prior Unpublish or
// self-unpublish, sending a fresh offer inside a `publish` body rather than
// `configure` (spec §6's request list distinguishes the two entry points).
// Either path leaves the publisher's Peer-Connection Session closed (spec
// §4.5 step 5), so this rebinds a fresh PeerConnection before negotiating,
// the same way the initial JoinAsPublisher does in capturePublish.
func (c *Client) Republish(opts PublisherOptions, cb func(err error)) error {
	if c.State() != StateJoined || c.publisher == nil {
		return ErrNotJoined
	}

	pc, err := c.config.NewPeerConnection()
	if err != nil {
		return err
	}
	c.publisher.BindPeerConnection(pc)

	audio, video, err := c.config.MediaSource.CreateLocalMediaStream()
	if err != nil {
		return err
	}
	plan, err := handle.MediaConfigResolver{}.Resolve(handle.CurrentMedia{}, handle.MediaConfig{
		Audio: handle.StreamRequest{Send: true, Recv: false, Action: handle.ActionAdd, Track: audio},
		Video: handle.StreamRequest{Send: true, Recv: false, Action: handle.ActionAdd, Track: video},
	})
	if err != nil {
		return err
	}

	return c.publisher.CreateOffer(plan, handle.OfferAnswerOptions{}, func(sdp string, err error) {
		if err != nil {
			cb(err)
			return
		}
		body := PublishBody{Request: "publish", Display: opts.Display}
		if opts.Bitrate > 0 {
			body.Bitrate = &opts.Bitrate
		}
		offer := &wire.JSEP{Type: wire.JSEPOffer, SDP: sdp}
		serr := c.publisher.SendMessage(body, offer, func(env *wire.Envelope, err error) {
			if err != nil {
				cb(err)
				return
			}
			if env.Jsep != nil {
				if aerr := c.publisher.ApplyRemoteJSEP(env.Jsep); aerr != nil {
					cb(aerr)
					return
				}
			}
			cb(nil)
		})
		if serr != nil {
			cb(serr)
		}
	})
}

// SetBitrate re-issues `configure` with a new bitrate cap, without a fresh
// offer/answer, supplemented per SPEC_FULL.md §D.
func (c *Client) SetBitrate(bitrate int, cb func(err error)) error {
	if c.State() != StateJoined || c.publisher == nil {
		return ErrNotJoined
	}
	body := NewConfigureBody(bitrate, "")
	return c.publisher.SendMessage(body, nil, func(env *wire.Envelope, err error) {
		cb(err)
	})
}

// Unpublish issues `unpublish` on the publisher handle, stopping local
// media without leaving the room.
func (c *Client) Unpublish(cb func(err error)) error {
	if c.State() != StateJoined || c.publisher == nil {
		return ErrNotJoined
	}
	return c.publisher.SendMessage(NewUnpublishBody(), nil, func(env *wire.Envelope, err error) {
		cb(err)
	})
}

// Leave issues `leave` on the publisher handle and detaches both handles,
// spec §4.5's room state machine Joined -> Leaving -> Outside.
func (c *Client) Leave(cb func(err error)) error {
	if err := c.setState(StateLeaving); err != nil {
		return err
	}
	if c.publisher == nil {
		return ErrNotJoined
	}
	return c.publisher.SendMessage(NewLeaveBody(), nil, func(env *wire.Envelope, err error) {
		c.teardown()
		cb(err)
	})
}

func (c *Client) teardown() {
	if c.publisher != nil {
		c.publisher.Detach(func(error) {})
	}
	if c.subscriber != nil {
		c.subscriber.Detach(func(error) {})
	}
	for _, p := range c.roster.Clear() {
		c.config.Hooks.OnRemoveParticipant(p.FeedID)
	}
	c.mu.Lock()
	c.subscribed = make(map[uint64]bool)
	c.streamMid = make(map[string]uint64)
	c.state = StateOutside
	c.mu.Unlock()
	c.config.Hooks.OnLeft()
}

// Kick issues `kick` for feedID, supplemented per SPEC_FULL.md §D.
func (c *Client) Kick(feedID uint64, secret string, cb func(err error)) error {
	if c.publisher == nil {
		return ErrNotJoined
	}
	return c.publisher.SendMessage(NewKickBody(c.room, feedID, secret), nil, func(env *wire.Envelope, err error) {
		cb(err)
	})
}

// ListRooms issues `list`, supplemented per SPEC_FULL.md §D.
func (c *Client) ListRooms(cb func(rooms []string, err error)) error {
	if c.publisher == nil {
		return ErrNotJoined
	}
	return c.publisher.SendMessage(NewListBody(), nil, func(env *wire.Envelope, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		var list ListEvent
		if perr := decodePluginData(env, &list); perr != nil {
			cb(nil, perr)
			return
		}
		cb(list.List, nil)
	})
}

func (c *Client) addParticipant(p PublisherInfo) {
	if p.ID == 0 {
		return
	}
	isNew := c.roster.Upsert(p.ID, p.Display)
	if isNew {
		c.config.Hooks.OnCreateParticipant(&Participant{FeedID: p.ID, Display: p.Display})
	}
	c.ensureSubscribed(p.ID)
}

func (c *Client) ensureSubscribed(feedID uint64) {
	c.mu.Lock()
	if c.subscribed[feedID] {
		c.mu.Unlock()
		return
	}
	c.subscribed[feedID] = true
	needsJoin := c.subscriber == nil
	c.mu.Unlock()

	if needsJoin {
		c.startSubscriber([]uint64{feedID})
		return
	}
	c.addSubscriberFeeds([]uint64{feedID})
}

func (c *Client) startSubscriber(feedIDs []uint64) {
	c.subscriber = handle.New(handle.Config{
		API:           c.config.API,
		Session:       c.config.Session,
		Plugin:        pluginName,
		Hooks:         &subscriberHooks{room: c},
		Trickle:       c.config.Trickle,
		LoggerFactory: c.config.LoggerFactory,
	})

	err := c.subscriber.Attach(func(err error) {
		if err != nil {
			c.roomError(fmt.Sprintf("subscriber attach failed: %v", err))
			return
		}

		pc, err := c.config.NewPeerConnection()
		if err != nil {
			c.roomError(err.Error())
			return
		}
		c.subscriber.BindPeerConnection(pc)

		body := NewJoinSubscriberBody(c.room, c.privateID, feedIDs)
		serr := c.subscriber.SendMessage(body, nil, func(env *wire.Envelope, err error) {
			if err != nil {
				c.roomError(err.Error())
				return
			}
			c.recordStreams(env)
			if env.Jsep != nil {
				c.answerSubscriberOffer(env.Jsep)
			}
		})
		if serr != nil {
			c.roomError(serr.Error())
		}
	})
	if err != nil {
		c.roomError(err.Error())
	}
}

func (c *Client) addSubscriberFeeds(feedIDs []uint64) {
	if c.subscriber == nil {
		c.startSubscriber(feedIDs)
		return
	}
	err := c.subscriber.SendMessage(NewSubscribeBody(feedIDs), nil, func(env *wire.Envelope, err error) {
		if err != nil {
			c.roomError(err.Error())
			return
		}
		c.recordStreams(env)
		if env.Jsep != nil {
			c.answerSubscriberOffer(env.Jsep)
		}
	})
	if err != nil {
		c.roomError(err.Error())
	}
}

func (c *Client) recordStreams(env *wire.Envelope) {
	var attached SubscriberAttachedEvent
	if err := decodePluginData(env, &attached); err != nil {
		return
	}
	c.mu.Lock()
	for _, s := range attached.Streams {
		if s.Mid != "" {
			c.streamMid[s.Mid] = s.FeedID
		}
	}
	c.mu.Unlock()
}

func (c *Client) answerSubscriberOffer(jsep *wire.JSEP) {
	if err := c.subscriber.ApplyRemoteJSEP(jsep); err != nil {
		c.roomError(err.Error())
		return
	}

	resolved := handle.MediaConfigResolver{}
	plan, err := resolved.Resolve(handle.CurrentMedia{}, handle.MediaConfig{
		Audio: handle.StreamRequest{Send: false, Recv: true, Action: handle.ActionKeep},
		Video: handle.StreamRequest{Send: false, Recv: true, Action: handle.ActionKeep},
	})
	if err != nil {
		c.roomError(err.Error())
		return
	}

	err = c.subscriber.CreateAnswer(plan, handle.OfferAnswerOptions{}, func(sdp string, err error) {
		if err != nil {
			c.roomError(err.Error())
			return
		}
		answer := &wire.JSEP{Type: wire.JSEPAnswer, SDP: sdp}
		serr := c.subscriber.SendMessage(NewStartBody(c.room), answer, func(env *wire.Envelope, err error) {
			if err != nil {
				c.roomError(err.Error())
			}
		})
		if serr != nil {
			c.roomError(serr.Error())
		}
	})
	if err != nil {
		c.roomError(err.Error())
	}
}

func (c *Client) dispatchRemoteTrack(track handle.Track, mid string, added bool) {
	c.mu.Lock()
	feedID := c.streamMid[mid]
	c.mu.Unlock()
	c.config.Hooks.OnRemoteTrack(feedID, track, mid, added)
}

// handlePublisherEvent processes an unsolicited `event` delivered to the
// publisher handle: updated publisher lists, peers leaving, this
// publisher being unpublished (spec §4.5 step 5), or the room being
// destroyed, which tears the Client down to Outside.
func (c *Client) handlePublisherEvent(body json.RawMessage) {
	var ev RoomEvent
	if err := (wire.StdCodec{}).Unmarshal(body, &ev); err != nil {
		return
	}

	if ev.VideoRoom == "destroyed" {
		c.teardown()
		return
	}

	for _, p := range ev.Publishers {
		c.addParticipant(p)
	}

	if feedID, ok := ev.LeavingFeedID(); ok {
		c.removeParticipant(feedID)
	}

	if ev.Unpublished != nil {
		if ev.Unpublished.IsSelf() {
			c.publisher.Hangup(func(error) {})
			return
		}
		if feedID, ok := ev.Unpublished.FeedID(); ok {
			c.removeParticipant(feedID)
		}
	}

	if ev.Error != "" {
		c.roomError(ev.Error)
	}
}

// handleSubscriberEvent processes an unsolicited `event` delivered to the
// subscriber handle: typically a renegotiation offer for newly added or
// removed streams.
func (c *Client) handleSubscriberEvent(body json.RawMessage, jsep *wire.JSEP) {
	var attached SubscriberAttachedEvent
	if err := (wire.StdCodec{}).Unmarshal(body, &attached); err == nil {
		c.mu.Lock()
		for _, s := range attached.Streams {
			if s.Mid != "" {
				c.streamMid[s.Mid] = s.FeedID
			}
		}
		c.mu.Unlock()
	}
	if jsep != nil && jsep.Type == wire.JSEPOffer {
		c.answerSubscriberOffer(jsep)
	}
}

func (c *Client) removeParticipant(feedID uint64) {
	if feedID == 0 {
		return
	}
	c.roster.Remove(feedID)
	c.mu.Lock()
	delete(c.subscribed, feedID)
	for mid, id := range c.streamMid {
		if id == feedID {
			delete(c.streamMid, mid)
		}
	}
	c.mu.Unlock()
	c.config.Hooks.OnRemoveParticipant(feedID)
}

// publisherCleanedUp handles the publisher handle's on_cleanup, spec §4.4.2.
// It only fires from a Hangup: a self-unpublish event (handlePublisherEvent)
// or a transport-loss InvalidateSession (spec §4.3). Leave's own teardown()
// detaches the publisher directly and does not route through here; by the
// time that Detach's internal Hangup re-enters this hook, the room is
// already StateLeaving, so it is a no-op rather than a second teardown.
//
// Either way, the publisher's peer connection is already gone (spec §4.5
// step 5); the room, the subscriber feed, and the roster are untouched so
// Republish can rejoin without leaving.
func (c *Client) publisherCleanedUp() {
	if c.State() == StateLeaving {
		return
	}
}

func (c *Client) roomError(desc string) {
	if c.log != nil {
		c.log.Warnf("videoroom: %s", desc)
	}
	c.config.Hooks.OnError(desc)
}

func decodePluginData(env *wire.Envelope, out any) error {
	if env.PluginData == nil {
		return fmt.Errorf("videoroom: reply missing plugindata")
	}
	return wire.StdCodec{}.Unmarshal(env.PluginData.Data, out)
}
