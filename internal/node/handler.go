package node

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KilimcininKorOglu/lightpaxos/internal/logging"
	"github.com/KilimcininKorOglu/lightpaxos/internal/paxos"
	"github.com/KilimcininKorOglu/lightpaxos/internal/store"
	"github.com/KilimcininKorOglu/lightpaxos/internal/transport"
)

// Timing defaults and constants.
const (
	// DefaultHeartbeatInterval is the interval between the rounds a primary starts.
	DefaultHeartbeatInterval = 10 * time.Second

	// DefaultPhaseTimeout bounds how long a proposer waits for a phase to complete.
	DefaultPhaseTimeout = 250 * time.Millisecond

	// StandbyHeartbeatCount is the number of missed heartbeats after which a
	// standby proposer runs for election.
	StandbyHeartbeatCount = 3

	// StandbyCoalesceWindow is the peer idle time below which an inbound
	// message does not rearm the standby timer.
	StandbyCoalesceWindow = 100 * time.Millisecond
)

// Options configures a Handler.
type Options struct {
	Transport transport.Transport
	Listener  paxos.Listener
	Logger    logging.Logger

	// Proposer enables the proposer role when non-nil.
	Proposer *paxos.ProposerConfig
	// AcceptorID enables the acceptor role when non-empty.
	AcceptorID string
	// LearnerID enables the learner role when non-empty.
	LearnerID string
	// Store receives the learner's decisions. Defaults to an unbounded memory store.
	Store store.DecisionStore

	HeartbeatInterval time.Duration
	PhaseTimeout      time.Duration
	BufferSize        int
	Clock             Clock
}

// Stats holds handler counters.
type Stats struct {
	Received    uint64 // datagrams read from the transport
	Sent        uint64 // messages handed to the transport
	Malformed   uint64 // datagrams that failed to decode
	StaleTimers uint64 // timer firings superseded by a rearm
	SendErrors  uint64
}

// Handler hosts the roles of one node and drives them from a single
// event loop fed by the transport and the timers.
type Handler struct {
	transport transport.Transport
	listener  paxos.Listener
	logger    logging.Logger
	clock     Clock

	proposer *paxos.Proposer
	acceptor *paxos.Acceptor
	learner  *paxos.Learner

	heartbeat    time.Duration
	phaseTimeout time.Duration
	bufferSize   int

	// Owned by the event loop.
	deadline    *deadline
	lastMessage time.Time
	standbyIdle time.Duration

	// Last decision id reported from a notification when no learner is hosted.
	lastNotified uint64
	notified     bool

	events   chan event
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  atomic.Bool
	err      error
	errMu    sync.Mutex

	received    atomic.Uint64
	sent        atomic.Uint64
	malformed   atomic.Uint64
	staleTimers atomic.Uint64
	sendErrors  atomic.Uint64
}

// NewHandler creates a handler hosting the roles enabled in opts.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Transport == nil {
		return nil, ErrNoTransport
	}
	if opts.Proposer == nil && opts.AcceptorID == "" && opts.LearnerID == "" {
		return nil, ErrNoRoles
	}

	h := &Handler{
		transport:    opts.Transport,
		listener:     opts.Listener,
		logger:       opts.Logger,
		clock:        opts.Clock,
		heartbeat:    opts.HeartbeatInterval,
		phaseTimeout: opts.PhaseTimeout,
		bufferSize:   opts.BufferSize,
		events:       make(chan event, 64),
		quit:         make(chan struct{}),
	}
	if h.listener == nil {
		h.listener = paxos.NopListener{}
	}
	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	if h.clock == nil {
		h.clock = systemClock{}
	}
	if h.heartbeat == 0 {
		h.heartbeat = DefaultHeartbeatInterval
	}
	if h.phaseTimeout == 0 {
		h.phaseTimeout = DefaultPhaseTimeout
	}
	if h.bufferSize <= 0 {
		h.bufferSize = paxos.DefaultBufferSize
	}
	if h.heartbeat <= StandbyCoalesceWindow {
		return nil, fmt.Errorf("%w: %v, must exceed %v", ErrHeartbeatTooShort, h.heartbeat, StandbyCoalesceWindow)
	}

	var err error
	if opts.Proposer != nil {
		if h.proposer, err = paxos.NewProposer(*opts.Proposer, h.listener, h.logger); err != nil {
			return nil, fmt.Errorf("node: proposer: %w", err)
		}
	}
	if opts.AcceptorID != "" {
		if h.acceptor, err = paxos.NewAcceptor(opts.AcceptorID, h.logger); err != nil {
			return nil, fmt.Errorf("node: acceptor: %w", err)
		}
	}
	if opts.LearnerID != "" {
		if h.learner, err = paxos.NewLearner(opts.LearnerID, opts.Store, h.logger); err != nil {
			return nil, fmt.Errorf("node: learner: %w", err)
		}
	}

	h.deadline = newDeadline(h.clock, h.postTimer)
	return h, nil
}

// Proposer returns the hosted proposer, nil if the role is disabled.
// Its state must only be read once the handler has stopped.
func (h *Handler) Proposer() *paxos.Proposer { return h.proposer }

// Acceptor returns the hosted acceptor, nil if the role is disabled.
func (h *Handler) Acceptor() *paxos.Acceptor { return h.acceptor }

// Learner returns the hosted learner, nil if the role is disabled.
func (h *Handler) Learner() *paxos.Learner { return h.learner }

// Stats returns a snapshot of the handler counters.
func (h *Handler) Stats() Stats {
	return Stats{
		Received:    h.received.Load(),
		Sent:        h.sent.Load(),
		Malformed:   h.malformed.Load(),
		StaleTimers: h.staleTimers.Load(),
		SendErrors:  h.sendErrors.Load(),
	}
}

// boot runs the start-mode decision before the loop takes over.
func (h *Handler) boot() {
	h.lastMessage = h.clock.Now()
	h.standbyIdle = h.heartbeat

	if h.proposer == nil {
		return
	}
	if h.proposer.StartMode() == paxos.StartPrimary {
		h.send(h.proposer.BecomeCandidate())
		h.armPhase()
		return
	}
	h.proposer.BecomeStandby()
	h.armStandby()
}

// dispatch routes one decoded message to the hosted roles.
func (h *Handler) dispatch(m paxos.Message) {
	if h.proposer != nil && m.SenderID != h.proposer.ID() {
		now := h.clock.Now()
		h.standbyIdle = now.Sub(h.lastMessage)
		h.lastMessage = now
	}

	switch m.Kind {
	case paxos.KindPrepareRequest:
		if h.acceptor != nil {
			h.send(h.acceptor.OnPrepare(m))
		}
		if h.proposer != nil && h.proposer.IsStandby() {
			h.armStandby()
			if !h.proposer.Synchronize(m.DecisionID, m.Proposal) {
				h.logger.Debug("prepare from an older round, baseline kept",
					"decision", m.DecisionID, "proposal", m.Proposal, "sender", m.SenderID)
			}
		}

	case paxos.KindAcceptRequest:
		if h.acceptor != nil {
			h.send(h.acceptor.OnAccept(m))
		}

	case paxos.KindPromiseReply:
		if h.proposer != nil {
			reply := h.proposer.OnPromise(m)
			h.send(reply)
			if reply.Kind == paxos.KindAcceptRequest {
				h.armPhase()
			}
		}

	case paxos.KindAcceptedValue:
		if h.proposer != nil {
			h.send(h.proposer.OnAccepted(m))
			if leader, ok := h.proposer.LearnQuorum(); ok {
				h.listener.OnConsensus(h.proposer.DecisionID(), leader)
				h.proposer.EndOfCycle()
				if h.proposer.IsPrimary() {
					h.armHeartbeat()
				} else {
					h.armStandby()
				}
			}
		}

	case paxos.KindConsensusNotification:
		first := h.firstNotification(m)
		if h.proposer == nil {
			if first {
				h.listener.OnConsensus(m.DecisionID, m.Value)
			}
		} else if h.proposer.IsCandidate() {
			h.logger.Info("election lost", "leader", m.Value, "decision", m.DecisionID)
			h.proposer.BecomeStandby()
			h.armStandby()
		}

	case paxos.KindRejectReply:
		if h.proposer == nil {
			return
		}
		if m.Value != h.proposer.ID() {
			h.proposer.BecomeStandby()
			h.armStandby()
			if !h.proposer.Synchronize(m.DecisionID+1, m.Proposal) {
				h.logger.Debug("reject from an older round, baseline kept",
					"decision", m.DecisionID, "sender", m.SenderID)
			}
			return
		}
		h.send(h.proposer.OnReject(m))

	default:
		h.logger.Debug("message ignored", "kind", m.Kind.String(), "sender", m.SenderID)
	}
}

// firstNotification reports whether m announces a decision not reported
// before. The learner's store decides when a learner is hosted, a
// high-water mark otherwise.
func (h *Handler) firstNotification(m paxos.Message) bool {
	if h.learner != nil {
		return h.learner.OnConsensus(m)
	}
	if m.Value == paxos.NoValue || (h.notified && m.DecisionID <= h.lastNotified) {
		return false
	}
	h.notified = true
	h.lastNotified = m.DecisionID
	return true
}

// onTimeout runs the handler of a current timer firing.
func (h *Handler) onTimeout(kind timerKind) {
	if h.proposer == nil {
		return
	}
	h.logger.Debug("timeout", "timer", kind.String(),
		"state", h.proposer.State().String(), "pending", h.proposer.PendingKind().String())

	switch kind {
	case timerPhase:
		switch h.proposer.PendingKind() {
		case paxos.KindPromiseReply:
			h.send(h.proposer.BecomeCandidate())
			h.armPhase()
		case paxos.KindAcceptedValue:
			h.logger.Warn("accept phase timed out, closing round", "decision", h.proposer.DecisionID())
			h.armPhase()
			h.proposer.EndOfCycle()
		}

	case timerHeartbeat:
		h.send(h.proposer.PrepareRequest())
		h.armPhase()

	case timerStandby:
		h.logger.Info("leader silent, running for election", "decision", h.proposer.DecisionID())
		h.send(h.proposer.BecomeCandidate())
		h.armPhase()
	}
}

// propose sends a ping when this node is primary.
func (h *Handler) propose(value string) bool {
	if h.proposer == nil || !h.proposer.IsPrimary() || !paxos.IsValidIdentifier(value) {
		return false
	}
	h.send(h.proposer.Ping(value))
	return true
}

func (h *Handler) armPhase() {
	h.deadline.arm(timerPhase, h.phaseTimeout)
}

func (h *Handler) armHeartbeat() {
	h.deadline.arm(timerHeartbeat, h.heartbeat)
}

// armStandby rearms the standby timer unless peers were heard from within
// the coalescing window.
func (h *Handler) armStandby() {
	if h.standbyIdle <= StandbyCoalesceWindow {
		return
	}
	h.deadline.arm(timerStandby, StandbyHeartbeatCount*h.heartbeat)
	h.standbyIdle = 0
}

// send validates and broadcasts m. Messages of kind None are skipped.
func (h *Handler) send(m paxos.Message) {
	if m.IsNone() {
		return
	}
	if err := m.Validate(h.bufferSize); err != nil {
		h.sendErrors.Add(1)
		h.logger.Error("outbound message rejected", "kind", m.Kind.String(), "error", err)
		return
	}
	if err := h.transport.Send(paxos.Encode(m)); err != nil {
		h.sendErrors.Add(1)
		h.logger.Error("send failed", "kind", m.Kind.String(), "error", err)
		return
	}
	h.sent.Add(1)
	if h.logger.Enabled(logging.LevelDebug) {
		h.logger.Debug("outbound", "kind", m.Kind.String(), "message", m.String())
	}
}
