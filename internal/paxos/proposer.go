package paxos

import (
	"fmt"
	"strings"

	"github.com/KilimcininKorOglu/lightpaxos/internal/logging"
)

// State is the election state of a proposer.
type State uint8

// Proposer states.
const (
	StateInitial State = iota
	StateCandidate
	StateStandby
	StatePrimary
)

// String returns the string representation of a proposer state.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateCandidate:
		return "candidate"
	case StateStandby:
		return "standby"
	case StatePrimary:
		return "primary"
	default:
		return "unknown"
	}
}

// StartMode selects what a proposer does when the node starts.
type StartMode uint8

// Start modes.
const (
	StartStandby StartMode = iota
	StartPrimary
)

// String returns the configuration spelling of the mode.
func (m StartMode) String() string {
	if m == StartPrimary {
		return "primary"
	}
	return "standby"
}

// ParseStartMode parses "primary" or "standby", case-insensitively.
func ParseStartMode(s string) (StartMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return StartPrimary, nil
	case "standby":
		return StartStandby, nil
	default:
		return StartStandby, fmt.Errorf("invalid start mode %q: must be primary or standby", s)
	}
}

// ProposerConfig configures a proposer.
type ProposerConfig struct {
	ID        string
	Quorum    []string // Acceptor ids; duplicates are ignored
	StartMode StartMode
}

// Proposer drives elections. Its promoted value is its own id.
type Proposer struct {
	roleBase

	listener  Listener
	quorum    map[string]struct{}
	majority  int
	startMode StartMode
	state     State

	ballot   uint64
	promoted string
	leader   string
	pending  Kind

	positive map[string]struct{}            // acceptors that promised the current ballot
	learned  map[string]map[string]struct{} // value -> acceptors that accepted it
}

// NewProposer creates a proposer in the initial state.
func NewProposer(cfg ProposerConfig, listener Listener, logger logging.Logger) (*Proposer, error) {
	if cfg.ID == "" {
		return nil, ErrMissingID
	}
	if !IsValidIdentifier(cfg.ID) {
		return nil, ErrInvalidIdentifier
	}

	quorum := make(map[string]struct{}, len(cfg.Quorum))
	for _, id := range cfg.Quorum {
		if id != "" {
			quorum[id] = struct{}{}
		}
	}
	if len(quorum) == 0 {
		return nil, ErrEmptyQuorum
	}

	if listener == nil {
		listener = NopListener{}
	}

	p := &Proposer{
		roleBase:  newRoleBase(cfg.ID, logger),
		listener:  listener,
		quorum:    quorum,
		majority:  Majority(len(quorum)),
		startMode: cfg.StartMode,
		state:     StateInitial,
		promoted:  cfg.ID,
		pending:   KindNone,
		positive:  make(map[string]struct{}),
		learned:   make(map[string]map[string]struct{}),
	}
	p.logger.Info("proposer configured",
		"quorum", len(quorum), "majority", p.majority, "startMode", cfg.StartMode.String())
	return p, nil
}

// State returns the current state.
func (p *Proposer) State() State { return p.state }

// StartMode returns the configured start mode.
func (p *Proposer) StartMode() StartMode { return p.startMode }

// IsCandidate returns true if the proposer is running an election.
func (p *Proposer) IsCandidate() bool { return p.state == StateCandidate }

// IsStandby returns true if the proposer defers to another leader.
func (p *Proposer) IsStandby() bool { return p.state == StateStandby }

// IsPrimary returns true if the proposer is the elected leader.
func (p *Proposer) IsPrimary() bool { return p.state == StatePrimary }

// Ballot returns the last proposed ballot number.
func (p *Proposer) Ballot() uint64 { return p.ballot }

// Majority returns the quorum majority, fixed at construction.
func (p *Proposer) Majority() int { return p.majority }

// PendingKind returns the reply kind the proposer is waiting for.
func (p *Proposer) PendingKind() Kind { return p.pending }

// InQuorum reports whether acceptorID is one of the configured acceptors.
func (p *Proposer) InQuorum(acceptorID string) bool {
	_, ok := p.quorum[acceptorID]
	return ok
}

// Leader returns the value that reached learn quorum in this round, if any.
func (p *Proposer) Leader() string { return p.leader }

// BecomeCandidate enters the candidate state and returns a new prepare request.
func (p *Proposer) BecomeCandidate() Message {
	p.transition(StateCandidate)
	return p.PrepareRequest()
}

// BecomeStandby enters the standby state.
func (p *Proposer) BecomeStandby() {
	p.transition(StateStandby)
}

// PrepareRequest starts a new ballot in the current round without changing state.
func (p *Proposer) PrepareRequest() Message {
	p.ballot++
	p.clearVotes()
	p.pending = KindPromiseReply
	return Message{
		DecisionID: p.decisionID,
		Kind:       KindPrepareRequest,
		SenderID:   p.id,
		Proposal:   p.ballot,
		Value:      NoValue,
	}
}

// Ping returns the no-op message a primary sends on a client proposal.
func (p *Proposer) Ping(value string) Message {
	return Message{
		DecisionID: p.decisionID,
		Kind:       KindPing,
		SenderID:   p.id,
		Proposal:   p.ballot,
		Value:      value,
	}
}

// OnPromise counts a promise. When the promise majority is first reached
// by a candidate or primary, it returns the accept request.
func (p *Proposer) OnPromise(m Message) Message {
	p.logInbound(m)

	if p.isSenderBehind(m, p.ballot, p.Reset) || m.Proposal != p.ballot {
		return Message{}
	}
	if !p.InQuorum(m.SenderID) {
		p.logger.Warn("promise from acceptor outside quorum, dropped", "sender", m.SenderID)
		return Message{}
	}

	if _, seen := p.positive[m.SenderID]; seen {
		return Message{}
	}
	p.positive[m.SenderID] = struct{}{}

	if len(p.positive) < p.majority {
		p.pending = KindPromiseReply
		return Message{}
	}
	if !p.PromiseMajorityReached() || !(p.IsCandidate() || p.IsPrimary()) {
		return Message{}
	}

	p.logger.Debug("promise quorum reached", "ballot", p.ballot, "decision", p.decisionID)
	p.pending = KindAcceptedValue
	return Message{
		DecisionID: p.decisionID,
		Kind:       KindAcceptRequest,
		SenderID:   p.id,
		Proposal:   p.ballot,
		Value:      p.promoted,
	}
}

// PromiseMajorityReached reports whether the promise count equals the majority exactly.
func (p *Proposer) PromiseMajorityReached() bool {
	return len(p.positive) == p.majority
}

// OnAccepted tallies an accepted value. When this proposer's own value
// reaches learn quorum it becomes primary and returns the consensus notification.
func (p *Proposer) OnAccepted(m Message) Message {
	p.logInbound(m)

	if p.isSenderBehind(m, p.ballot, p.Reset) || m.Value == NoValue {
		return Message{}
	}
	if !p.InQuorum(m.SenderID) {
		p.logger.Warn("accepted value from acceptor outside quorum, dropped", "sender", m.SenderID)
		return Message{}
	}

	voters, ok := p.learned[m.Value]
	if !ok {
		voters = make(map[string]struct{})
		p.learned[m.Value] = voters
	}
	voters[m.SenderID] = struct{}{}

	if p.belowLearnQuorum() {
		p.pending = KindAcceptedValue
	}

	leader, ok := p.LearnQuorum()
	if !ok {
		return Message{}
	}
	p.logger.Debug("accept quorum reached", "elected", leader, "decision", p.decisionID)
	if leader != p.id {
		return Message{}
	}

	p.transition(StatePrimary)
	p.pending = KindNone
	return Message{
		DecisionID: p.decisionID,
		Kind:       KindConsensusNotification,
		SenderID:   p.id,
		Proposal:   p.ballot,
		Value:      p.promoted,
	}
}

// LearnQuorum returns the value accepted by exactly a majority of acceptors.
func (p *Proposer) LearnQuorum() (string, bool) {
	p.leader = ""
	for value, voters := range p.learned {
		if len(voters) == p.majority {
			p.leader = value
			break
		}
	}
	return p.leader, p.leader != ""
}

func (p *Proposer) belowLearnQuorum() bool {
	for _, voters := range p.learned {
		if len(voters) >= p.majority {
			return false
		}
	}
	return true
}

// OnReject resynchronises to the rejecting acceptor's round and ballot.
// A reject from an older round is ignored.
func (p *Proposer) OnReject(m Message) Message {
	p.logInbound(m)
	if m.DecisionID < p.decisionID {
		p.logger.Debug("reject from an older round ignored",
			"decision", m.DecisionID, "current", p.decisionID)
		return Message{}
	}

	p.logger.Info("received reject, resynchronizing",
		"decision", m.DecisionID, "proposal", m.Proposal)
	if m.DecisionID > p.decisionID || m.Proposal > p.ballot {
		p.ballot = m.Proposal
	}
	p.Reset(m.DecisionID)
	return Message{}
}

// Synchronize adopts a peer's round and ballot without a state change.
// It reports false and changes nothing for an older round. Within the
// current round the peer's ballot is taken as is so the leader's
// accepted values are not seen as stale.
func (p *Proposer) Synchronize(decisionID, ballot uint64) bool {
	switch {
	case decisionID < p.decisionID:
		return false
	case decisionID > p.decisionID:
		p.Reset(decisionID)
	}
	p.ballot = ballot
	return true
}

// EndOfCycle closes the current round and moves to the next one.
func (p *Proposer) EndOfCycle() {
	p.logger.Debug("end of cycle", "decision", p.decisionID)
	p.decisionID++
	p.clearVotes()
	p.learned = make(map[string]map[string]struct{})
	p.leader = ""
	p.ballot = 0
	p.pending = KindNone
}

// Reset adopts decisionID and drops the values learned so far.
func (p *Proposer) Reset(decisionID uint64) {
	p.logger.Debug("reset decision id", "from", p.decisionID, "to", decisionID)
	p.learned = make(map[string]map[string]struct{})
	p.leader = ""
	p.decisionID = decisionID
}

func (p *Proposer) clearVotes() {
	p.positive = make(map[string]struct{})
}

func (p *Proposer) transition(state State) {
	if p.state == state {
		return
	}
	p.logger.Info("state transition", "from", p.state.String(), "to", state.String())
	p.state = state
	p.listener.OnStateChange(p.id, state)
}
