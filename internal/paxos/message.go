package paxos

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a protocol message. The numeric values are the wire codes
// and must stay stable across a deployment.
type Kind uint8

// Message kinds.
const (
	KindNone Kind = iota
	KindPrepareRequest
	KindPromiseReply
	KindAcceptRequest
	KindAcceptedValue
	KindRejectReply
	KindConsensusNotification
	KindPing
)

// String returns the diagnostic name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPrepareRequest:
		return "prepare"
	case KindPromiseReply:
		return "promise"
	case KindAcceptRequest:
		return "accept"
	case KindAcceptedValue:
		return "accepted"
	case KindRejectReply:
		return "reject"
	case KindConsensusNotification:
		return "consensus"
	case KindPing:
		return "ping"
	default:
		return "unknown"
	}
}

// Wire format constants.
const (
	// NoValue marks the value field of a message that carries no candidate.
	NoValue = "?"

	// DefaultBufferSize is the datagram size every encoded message must fit.
	DefaultBufferSize = 1024

	fieldSeparator = ','
	fieldCount     = 5
)

// Message is one datagram of the protocol.
type Message struct {
	DecisionID uint64 // Round the message belongs to
	Kind       Kind
	SenderID   string // Role instance that produced the message
	Proposal   uint64 // Ballot number
	Value      string // Candidate identity or NoValue
}

// IsNone reports whether the message must not be transmitted.
func (m Message) IsNone() bool {
	return m.Kind == KindNone
}

// String returns the message in its wire form without the terminator.
func (m Message) String() string {
	return string(bytes.TrimSuffix(Encode(m), []byte{'\n'}))
}

// Validate checks that the message can be put on the wire unchanged.
func (m Message) Validate(maxSize int) error {
	if !IsValidIdentifier(m.SenderID) {
		return fmt.Errorf("%w: sender %q", ErrInvalidIdentifier, m.SenderID)
	}
	if !IsValidIdentifier(m.Value) {
		return fmt.Errorf("%w: value %q", ErrInvalidIdentifier, m.Value)
	}
	if maxSize > 0 {
		if n := len(Encode(m)); n > maxSize {
			return fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, n, maxSize)
		}
	}
	return nil
}

// IsValidIdentifier reports whether s can travel in a message field.
func IsValidIdentifier(s string) bool {
	return !strings.ContainsAny(s, ",\r\n")
}

// Encode renders m as decision,kind,sender,proposal,value followed by a newline.
func Encode(m Message) []byte {
	buf := make([]byte, 0, 32+len(m.SenderID)+len(m.Value))
	buf = strconv.AppendUint(buf, m.DecisionID, 10)
	buf = append(buf, fieldSeparator)
	buf = strconv.AppendUint(buf, uint64(m.Kind), 10)
	buf = append(buf, fieldSeparator)
	buf = append(buf, m.SenderID...)
	buf = append(buf, fieldSeparator)
	buf = strconv.AppendUint(buf, m.Proposal, 10)
	buf = append(buf, fieldSeparator)
	buf = append(buf, m.Value...)
	buf = append(buf, '\n')
	return buf
}

// Decode parses one datagram produced by Encode. The datagram must end
// with exactly one line terminator; a missing one means it was cut short.
func Decode(data []byte) (Message, error) {
	if !bytes.HasSuffix(data, []byte{'\n'}) {
		return Message{}, fmt.Errorf("%w: missing line terminator", ErrMalformedMessage)
	}
	line := bytes.TrimSuffix(data[:len(data)-1], []byte{'\r'})

	fields := strings.Split(string(line), string(fieldSeparator))
	if len(fields) != fieldCount {
		return Message{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedMessage, fieldCount, len(fields))
	}

	decision, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return Message{}, fmt.Errorf("%w: decision id %q", ErrMalformedMessage, fields[0])
	}

	code, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil || Kind(code) > KindPing {
		return Message{}, fmt.Errorf("%w: kind %q", ErrMalformedMessage, fields[1])
	}

	proposal, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return Message{}, fmt.Errorf("%w: proposal %q", ErrMalformedMessage, fields[3])
	}

	if strings.ContainsAny(fields[2], "\r\n") || strings.ContainsAny(fields[4], "\r\n") {
		return Message{}, fmt.Errorf("%w: embedded line terminator", ErrMalformedMessage)
	}

	return Message{
		DecisionID: decision,
		Kind:       Kind(code),
		SenderID:   fields[2],
		Proposal:   proposal,
		Value:      fields[4],
	}, nil
}
