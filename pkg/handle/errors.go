package handle

import "fmt"

// Handle Client / negotiation error taxonomy, spec §7.
var (
	// ErrUnknownHandle is returned by an operation on a handle id not
	// present in the Session Manager's registry.
	ErrUnknownHandle = fmt.Errorf("handle: unknown handle")

	// ErrInvalidJsep is returned when a JSEP offer/answer is malformed or
	// arrives in a state that cannot accept it.
	ErrInvalidJsep = fmt.Errorf("handle: invalid jsep")

	// ErrInvalidDtmf is returned by SendDTMF for a tone string that is empty
	// or holds no valid DTMF character.
	ErrInvalidDtmf = fmt.Errorf("handle: invalid dtmf")

	// ErrDataChannelNotOpen is returned by SendData when the named channel
	// has not reached the open state.
	ErrDataChannelNotOpen = fmt.Errorf("handle: data channel not open")

	// ErrTrackAlreadyPresent is returned by the media config resolver when
	// an `add` is requested for a kind that already has a local track.
	ErrTrackAlreadyPresent = fmt.Errorf("handle: track already present")

	// ErrClosed is returned by any operation on a Client after Detach.
	ErrClosed = fmt.Errorf("handle: closed")

	// ErrSessionDown is returned by any send while the owning session is
	// not Up.
	ErrSessionDown = fmt.Errorf("handle: session down")

	// ErrIllegalNegotiationState is returned when CreateOffer/CreateAnswer
	// is called from a Peer-Connection Session state that does not permit
	// it (spec §4.4.2).
	ErrIllegalNegotiationState = fmt.Errorf("handle: illegal negotiation state")

	// ErrNoAudioSender is returned by SendDTMF when no transceiver carries
	// an audio sender capable of inserting tones.
	ErrNoAudioSender = fmt.Errorf("handle: no audio sender")

	// ErrSimulcastUnsupported is returned by a Sender.SetEncodings
	// implementation that has no way to attach encodings to an
	// already-created sender. Callers fall back to InjectSimulcastSDP,
	// spec §4.4.4's named alternative.
	ErrSimulcastUnsupported = fmt.Errorf("handle: sender does not support SetEncodings")
)

// NegotiationFailure reports that an offer/answer exchange failed at a
// named stage. The peer connection is torn down; the handle itself stays
// attached (spec §7 policy).
type NegotiationFailure struct {
	Stage string
	Err   error
}

func (e *NegotiationFailure) Error() string {
	return fmt.Sprintf("handle: negotiation failed at %s: %v", e.Stage, e.Err)
}

func (e *NegotiationFailure) Unwrap() error { return e.Err }
