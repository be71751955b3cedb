package transport

import (
	"sync"
)

// memoryInboxSize bounds the datagrams queued per endpoint. Datagrams
// arriving at a full inbox are dropped, as a full socket buffer would.
const memoryInboxSize = 256

// DropFunc decides whether a datagram from one endpoint to another is lost.
type DropFunc func(from, to string, data []byte) bool

// MemoryNetwork is an in-process broadcast bus. Every datagram reaches
// every joined endpoint, the sender included, in one global order.
type MemoryNetwork struct {
	endpoints []*MemoryTransport
	drop      DropFunc
	maxSize   int
	mu        sync.Mutex
}

// NewMemoryNetwork creates an empty network carrying datagrams up to
// DefaultBufferSize bytes.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{maxSize: DefaultBufferSize}
}

// SetDropFilter installs f; nil delivers everything.
func (n *MemoryNetwork) SetDropFilter(f DropFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drop = f
}

// Join attaches a new endpoint named name.
func (n *MemoryNetwork) Join(name string) *MemoryTransport {
	t := &MemoryTransport{
		network: n,
		name:    name,
		inbox:   make(chan []byte, memoryInboxSize),
		done:    make(chan struct{}),
	}

	n.mu.Lock()
	n.endpoints = append(n.endpoints, t)
	n.mu.Unlock()
	return t
}

// Len returns the number of joined endpoints.
func (n *MemoryNetwork) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.endpoints)
}

func (n *MemoryNetwork) broadcast(from string, data []byte) error {
	if len(data) > n.maxSize {
		return ErrMessageTooLarge
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ep := range n.endpoints {
		if n.drop != nil && n.drop(from, ep.name, data) {
			continue
		}
		datagram := make([]byte, len(data))
		copy(datagram, data)
		select {
		case ep.inbox <- datagram:
		default:
		}
	}
	return nil
}

func (n *MemoryNetwork) leave(t *MemoryTransport) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, ep := range n.endpoints {
		if ep == t {
			n.endpoints = append(n.endpoints[:i], n.endpoints[i+1:]...)
			return
		}
	}
}

// MemoryTransport is one endpoint of a MemoryNetwork.
type MemoryTransport struct {
	network   *MemoryNetwork
	name      string
	inbox     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Send broadcasts data to every endpoint of the network.
func (t *MemoryTransport) Send(data []byte) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	return t.network.broadcast(t.name, data)
}

// Receive blocks for the next datagram. A datagram longer than buf is truncated.
func (t *MemoryTransport) Receive(buf []byte) (int, error) {
	select {
	case <-t.done:
		return 0, ErrClosed
	default:
	}

	select {
	case data := <-t.inbox:
		return copy(buf, data), nil
	case <-t.done:
		return 0, ErrClosed
	}
}

// Close detaches the endpoint and unblocks Receive.
func (t *MemoryTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.network.leave(t)
	})
	return nil
}

// LocalAddr returns "memory:" followed by the endpoint name.
func (t *MemoryTransport) LocalAddr() string {
	return "memory:" + t.name
}

// Name returns the endpoint name.
func (t *MemoryTransport) Name() string {
	return t.name
}
