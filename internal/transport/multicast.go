package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"golang.org/x/net/ipv4"
)

// MulticastConfig configures a MulticastTransport.
type MulticastConfig struct {
	Interface  string // interface name or IPv4 address; empty or 0.0.0.0 for the system default
	Group      string // IPv4 multicast group
	Port       int
	TTL        int // multicast hop limit
	Loopback   bool
	BufferSize int
}

// MulticastTransport implements Transport over one UDP socket joined to
// an IPv4 multicast group.
type MulticastTransport struct {
	conn       net.PacketConn
	pc         *ipv4.PacketConn
	ifi        *net.Interface
	group      *net.UDPAddr
	bufferSize int
	closed     bool
	mu         sync.RWMutex
}

// NewMulticast binds the group port, joins the group and applies the
// multicast socket options.
func NewMulticast(cfg MulticastConfig) (*MulticastTransport, error) {
	groupIP := net.ParseIP(cfg.Group).To4()
	if groupIP == nil || !groupIP.IsMulticast() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroup, cfg.Group)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("transport: invalid port %d", cfg.Port)
	}

	ifi, err := resolveInterface(cfg.Interface)
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{Control: reuseControl}
	conn, err := lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("transport: listen: %w", err)
	}

	group := &net.UDPAddr{IP: groupIP, Port: cfg.Port}
	pc := ipv4.NewPacketConn(conn)

	if err := pc.JoinGroup(ifi, &net.UDPAddr{IP: groupIP}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: join group %s: %w", groupIP, err)
	}
	if ifi != nil {
		if err := pc.SetMulticastInterface(ifi); err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: set multicast interface: %w", err)
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 1
	}
	if err := pc.SetMulticastTTL(ttl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: set multicast ttl: %w", err)
	}
	if err := pc.SetMulticastLoopback(cfg.Loopback); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: set multicast loopback: %w", err)
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &MulticastTransport{
		conn:       conn,
		pc:         pc,
		ifi:        ifi,
		group:      group,
		bufferSize: bufferSize,
	}, nil
}

// resolveInterface finds a local interface by name or by one of its
// IPv4 addresses. An empty value or the unspecified address selects the
// system default, returned as nil.
func resolveInterface(value string) (*net.Interface, error) {
	if value == "" {
		return nil, nil
	}
	ip := net.ParseIP(value)
	if ip == nil {
		ifi, err := net.InterfaceByName(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInterfaceNotFound, value)
		}
		return ifi, nil
	}
	if ip.IsUnspecified() {
		return nil, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("transport: list interfaces: %w", err)
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.Equal(ip) {
				return &ifaces[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInterfaceNotFound, value)
}

// Send writes one datagram to the group.
func (t *MulticastTransport) Send(data []byte) error {
	if len(data) > t.bufferSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, len(data), t.bufferSize)
	}

	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	_, err := t.pc.WriteTo(data, nil, t.group)
	return err
}

// Receive reads one datagram.
func (t *MulticastTransport) Receive(buf []byte) (int, error) {
	n, _, _, err := t.pc.ReadFrom(buf)
	if err != nil {
		t.mu.RLock()
		closed := t.closed
		t.mu.RUnlock()
		if closed {
			return 0, ErrClosed
		}
		return 0, err
	}
	return n, nil
}

// Close leaves the group and closes the socket.
func (t *MulticastTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	// The socket is closed either way; a failed leave is not reported.
	_ = t.pc.LeaveGroup(t.ifi, &net.UDPAddr{IP: t.group.IP})
	return t.conn.Close()
}

// LocalAddr returns the bound address.
func (t *MulticastTransport) LocalAddr() string {
	return t.conn.LocalAddr().String()
}

// Group returns the multicast group address datagrams are sent to.
func (t *MulticastTransport) Group() string {
	return t.group.String()
}
