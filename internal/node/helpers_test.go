package node

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/KilimcininKorOglu/lightpaxos/internal/paxos"
	"github.com/KilimcininKorOglu/lightpaxos/internal/transport"
)

// recordingTransport keeps every sent message. Receive blocks until Close.
type recordingTransport struct {
	mu     sync.Mutex
	sent   []paxos.Message
	closed chan struct{}
	once   sync.Once
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{closed: make(chan struct{})}
}

func (r *recordingTransport) Send(data []byte) error {
	m, err := paxos.Decode(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return nil
}

func (r *recordingTransport) Receive(_ []byte) (int, error) {
	<-r.closed
	return 0, transport.ErrClosed
}

func (r *recordingTransport) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func (r *recordingTransport) LocalAddr() string { return "recording" }

// take returns the messages sent since the previous call.
func (r *recordingTransport) take() []paxos.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	sent := r.sent
	r.sent = nil
	return sent
}

// manualClock fires timers only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs the callbacks that became due, in
// deadline order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

type consensusEvent struct {
	decision uint64
	value    string
}

// recordingListener collects callbacks; safe for use from the event loop.
type recordingListener struct {
	mu        sync.Mutex
	states    []paxos.State
	consensus []consensusEvent
	onEvent   chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{onEvent: make(chan struct{}, 1024)}
}

func (l *recordingListener) OnStateChange(_ string, state paxos.State) {
	l.mu.Lock()
	l.states = append(l.states, state)
	l.mu.Unlock()
	l.notify()
}

func (l *recordingListener) OnConsensus(decisionID uint64, value string) {
	l.mu.Lock()
	l.consensus = append(l.consensus, consensusEvent{decisionID, value})
	l.mu.Unlock()
	l.notify()
}

func (l *recordingListener) notify() {
	select {
	case l.onEvent <- struct{}{}:
	default:
	}
}

func (l *recordingListener) snapshot() ([]paxos.State, []consensusEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]paxos.State(nil), l.states...), append([]consensusEvent(nil), l.consensus...)
}

// lastState returns the latest reported state, StateInitial if none.
func (l *recordingListener) lastState() paxos.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.states) == 0 {
		return paxos.StateInitial
	}
	return l.states[len(l.states)-1]
}

// testNode bundles a handler driven by hand from the test goroutine.
type testNode struct {
	t        *testing.T
	h        *Handler
	tr       *recordingTransport
	clock    *manualClock
	listener *recordingListener
}

const (
	testHeartbeat = time.Second
	testPhase     = 100 * time.Millisecond
)

var testQuorum = []string{"a1", "a2", "a3"}

func newTestNode(t *testing.T, opts Options) *testNode {
	t.Helper()

	n := &testNode{
		t:        t,
		tr:       newRecordingTransport(),
		clock:    newManualClock(),
		listener: newRecordingListener(),
	}
	opts.Transport = n.tr
	opts.Clock = n.clock
	opts.Listener = n.listener
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = testHeartbeat
	}
	if opts.PhaseTimeout == 0 {
		opts.PhaseTimeout = testPhase
	}

	h, err := NewHandler(opts)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	n.h = h
	return n
}

func proposerNode(t *testing.T, id string, mode paxos.StartMode) *testNode {
	return newTestNode(t, Options{
		Proposer: &paxos.ProposerConfig{ID: id, Quorum: testQuorum, StartMode: mode},
	})
}

// deliver feeds m to the handler as a received datagram.
func (n *testNode) deliver(m paxos.Message) {
	n.h.handleEvent(event{kind: eventDatagram, data: paxos.Encode(m)})
}

// advance moves the clock and processes the timer firings it caused.
func (n *testNode) advance(d time.Duration) {
	n.clock.Advance(d)
	n.drain()
}

func (n *testNode) drain() {
	for {
		select {
		case ev := <-n.h.events:
			n.h.handleEvent(ev)
		default:
			return
		}
	}
}

// expectSent checks the messages sent since the last check.
func (n *testNode) expectSent(want ...paxos.Message) {
	n.t.Helper()
	got := n.tr.take()
	if len(got) != len(want) {
		n.t.Fatalf("sent %d messages %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			n.t.Errorf("message %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func msg(decision uint64, kind paxos.Kind, sender string, proposal uint64, value string) paxos.Message {
	return paxos.Message{DecisionID: decision, Kind: kind, SenderID: sender, Proposal: proposal, Value: value}
}
