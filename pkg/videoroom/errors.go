package videoroom

import "errors"

// VideoRoom Client package errors.
var (
	// ErrIllegalTransition is returned by the room state machine when asked
	// to move to a state unreachable from the current one.
	ErrIllegalTransition = errors.New("videoroom: illegal state transition")

	// ErrNotJoined is returned by Republish, SetBitrate and Unpublish
	// outside the Joined state, and by Leave, Kick and ListRooms when no
	// publisher handle exists. Leave from a state other than Joined
	// returns ErrIllegalTransition instead.
	ErrNotJoined = errors.New("videoroom: not joined")

	// ErrAlreadyJoining is returned by JoinAsPublisher when a join attempt is already
	// in flight or membership already holds.
	ErrAlreadyJoining = errors.New("videoroom: already joining")
)
