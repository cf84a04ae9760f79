package handle

// StreamAction is the renegotiation input for one media kind, spec §4.4.1.
type StreamAction int

const (
	ActionKeep StreamAction = iota
	ActionAdd
	ActionRemove
	ActionReplace
)

// String returns a human-readable action name.
func (a StreamAction) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	case ActionReplace:
		return "replace"
	default:
		return "keep"
	}
}

// StreamRequest is the caller's renegotiation input for one kind.
type StreamRequest struct {
	Send   bool
	Recv   bool
	Action StreamAction

	// Track supplies the track to add/replace with. May be nil, in which
	// case the resolver's caller is expected to capture one from a
	// MediaSource before applying the resolved config.
	Track Track

	// External marks Track as supplied by the caller rather than captured
	// from a MediaSource, so Hangup must not stop it (spec §4.4.2).
	External bool
}

// MediaConfig is the renegotiation input across both kinds.
type MediaConfig struct {
	Audio StreamRequest
	Video StreamRequest
}

// CurrentMedia reports whether a local track already exists per kind,
// input to the rules that degrade `keep`/`replace` to `add`.
type CurrentMedia struct {
	HasAudio bool
	HasVideo bool
}

// ResolvedStream is the normalized renegotiation plan for one kind.
type ResolvedStream struct {
	Direction TransceiverDirection
	Action    StreamAction
	Track     Track
	External  bool
}

// ResolvedMediaConfig is the resolver's output, spec §4.4.1.
type ResolvedMediaConfig struct {
	Audio ResolvedStream
	Video ResolvedStream

	// SkipCapture is true when both kinds are `keep` with sending enabled
	// and an existing track present: renegotiation proceeds with the
	// current stream and no new capture is needed (rule 4).
	SkipCapture bool
}

// MediaConfigResolver normalizes a MediaConfig into a ResolvedMediaConfig,
// applying the degrade/validate/detach rules independently per kind.
type MediaConfigResolver struct{}

// Resolve applies spec §4.4.1 rules 1-4.
func (MediaConfigResolver) Resolve(current CurrentMedia, cfg MediaConfig) (ResolvedMediaConfig, error) {
	audio, err := resolveStream(current.HasAudio, cfg.Audio)
	if err != nil {
		return ResolvedMediaConfig{}, err
	}
	video, err := resolveStream(current.HasVideo, cfg.Video)
	if err != nil {
		return ResolvedMediaConfig{}, err
	}

	skip := cfg.Audio.Action == ActionKeep && cfg.Video.Action == ActionKeep &&
		cfg.Audio.Send && cfg.Video.Send && current.HasAudio && current.HasVideo

	return ResolvedMediaConfig{Audio: audio, Video: video, SkipCapture: skip}, nil
}

func resolveStream(hasTrack bool, req StreamRequest) (ResolvedStream, error) {
	action := req.Action

	// Rule 1: degrade when no existing local stream exists.
	if !hasTrack {
		switch action {
		case ActionReplace:
			action = ActionAdd
		case ActionKeep:
			if req.Send {
				action = ActionAdd
			}
		}
	}

	// Rule 2: add requires no existing track of that kind.
	if action == ActionAdd && hasTrack {
		return ResolvedStream{}, ErrTrackAlreadyPresent
	}

	return ResolvedStream{
		Direction: ResolveDirection(req.Send, req.Recv),
		Action:    action,
		Track:     req.Track,
		External:  req.External,
	}, nil
}
