// janus-room-cli is a minimal VideoRoom publisher example.
//
// It joins a Janus VideoRoom as a publisher, captures local audio/video,
// and prints room membership events until interrupted.
//
// Usage:
//
//	janus-room-cli [options]
//
// Options:
//
//	-gateway   Janus WebSocket gateway URL (default: ws://localhost:8188/janus)
//	-room      Room id to join (default: 1234)
//	-display   Display name (default: janus-room-cli)
//	-pin       Room PIN, if required
//	-bitrate   Outgoing video bitrate cap in bps (default: 0, uncapped)
//	-ice       Comma-separated STUN/TURN server URLs
//	-trickle   Enable per-candidate ICE delivery (default: true)
//
// Example:
//
//	janus-room-cli -gateway ws://janus.example.com/janus -room 1234 -display alice
package main

import (
	"log"

	"github.com/pion/logging"

	"github.com/coderoom/janusrtc/examples/common"
	"github.com/coderoom/janusrtc/pkg/handle"
	"github.com/coderoom/janusrtc/pkg/rtcpeer"
	"github.com/coderoom/janusrtc/pkg/videoroom"
)

type cliHooks struct {
	opts common.Options
}

func (h *cliHooks) OnJoined(myFeedID, privateID uint64) {
	log.Printf("joined room %s as feed %d (private id %d)", h.opts.Room, myFeedID, privateID)
}

func (h *cliHooks) OnCreateParticipant(p *videoroom.Participant) {
	log.Printf("participant joined: feed %d, display %q", p.FeedID, p.Display)
}

func (h *cliHooks) OnRemoveParticipant(feedID uint64) {
	log.Printf("participant left: feed %d", feedID)
}

func (h *cliHooks) OnRemoteTrack(feedID uint64, track handle.Track, mid string, added bool) {
	state := "added"
	if !added {
		state = "removed"
	}
	log.Printf("remote track %s: feed %d, mid %s, kind %s", state, feedID, mid, track.Kind())
}

func (h *cliHooks) OnLeft() {
	log.Println("left room")
}

func (h *cliHooks) OnError(desc string) {
	log.Printf("room error: %s", desc)
}

func main() {
	opts := common.ParseFlags()

	ctx, stop := common.NotifyContext()
	defer stop()

	loggerFactory := logging.NewDefaultLoggerFactory()

	sess, err := common.Connect(ctx, opts, loggerFactory)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer sess.Close()

	trickle := opts.Trickle
	room := videoroom.New(videoroom.Config{
		API:     sess.API,
		Session: sess.Manager,
		NewPeerConnection: func() (handle.PeerConnection, error) {
			return common.NewPeerConnection(opts)
		},
		MediaSource:   rtcpeer.NewMediaSource(),
		Hooks:         &cliHooks{opts: opts},
		Trickle:       &trickle,
		LoggerFactory: loggerFactory,
	})

	done := make(chan error, 1)
	err = room.JoinAsPublisher(videoroom.PublisherOptions{
		Room:    opts.Room,
		Display: opts.Display,
		PIN:     opts.PIN,
		Bitrate: opts.Bitrate,
	}, func(err error) { done <- err })
	if err != nil {
		log.Fatalf("join as publisher: %v", err)
	}
	if err := <-done; err != nil {
		log.Fatalf("join as publisher: %v", err)
	}

	log.Println("publishing, press Ctrl+C to leave")
	<-ctx.Done()

	leaveDone := make(chan error, 1)
	if err := room.Leave(func(err error) { leaveDone <- err }); err != nil {
		log.Printf("leave: %v", err)
		return
	}
	if err := <-leaveDone; err != nil {
		log.Printf("leave: %v", err)
	}
}
