package paxos

import "errors"

// Paxos errors.
var (
	// ErrMalformedMessage is returned when a datagram cannot be decoded.
	ErrMalformedMessage = errors.New("paxos: malformed message")

	// ErrInvalidIdentifier is returned when a sender id or value contains
	// the field separator or a line terminator.
	ErrInvalidIdentifier = errors.New("paxos: invalid identifier")

	// ErrMessageTooLarge is returned when an encoded message exceeds the
	// datagram buffer.
	ErrMessageTooLarge = errors.New("paxos: message too large")

	// ErrEmptyQuorum is returned when a proposer is configured without acceptors.
	ErrEmptyQuorum = errors.New("paxos: empty quorum")

	// ErrMissingID is returned when a role is configured without an id.
	ErrMissingID = errors.New("paxos: missing role id")
)
