// Package transport moves protocol datagrams between the nodes of a group.
//
// Every datagram is broadcast: a node never addresses a peer directly.
// MulticastTransport does this over UDP multicast, MemoryNetwork in
// process for tests and local demos.
package transport

import "errors"

// DefaultBufferSize is the largest datagram a transport sends or receives
// unless configured otherwise.
const DefaultBufferSize = 1024

// Transport errors.
var (
	// ErrClosed is returned by every operation on a closed transport.
	ErrClosed = errors.New("transport: closed")

	// ErrMessageTooLarge is returned by Send for a datagram over the buffer size.
	ErrMessageTooLarge = errors.New("transport: message too large")

	// ErrInvalidGroup is returned when the multicast group is not an IPv4
	// multicast address.
	ErrInvalidGroup = errors.New("transport: invalid multicast group")

	// ErrInterfaceNotFound is returned when no local interface matches the
	// configured name or address.
	ErrInterfaceNotFound = errors.New("transport: interface not found")
)

// Transport defines fire-and-forget group communication.
type Transport interface {
	// Send broadcasts one datagram to the group, the sender included
	// when loopback is on.
	Send(data []byte) error

	// Receive blocks until a datagram arrives and copies it into buf.
	// A datagram longer than buf is truncated to len(buf) bytes.
	// It returns ErrClosed once the transport is closed.
	Receive(buf []byte) (int, error)

	// Close shuts down the transport and unblocks Receive.
	Close() error

	// LocalAddr returns the local address.
	LocalAddr() string
}
