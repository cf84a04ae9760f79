// Package videoroom implements the VideoRoom Client, spec §4.5: a
// room-level orchestrator that owns one publisher handle.Client (local
// capture and send path) and one subscriber handle.Client (a single peer
// connection multiplexing every remote feed), and maintains the
// Participant roster for the room.
package videoroom
