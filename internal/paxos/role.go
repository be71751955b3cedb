package paxos

import "github.com/KilimcininKorOglu/lightpaxos/internal/logging"

// Majority returns the number of votes that concludes a phase for a quorum of n acceptors.
func Majority(n int) int {
	return n/2 + 1
}

// roleBase carries the identity and round shared by every role.
type roleBase struct {
	id         string
	decisionID uint64
	logger     logging.Logger
}

func newRoleBase(id string, logger logging.Logger) roleBase {
	if logger == nil {
		logger = logging.NewNop()
	}
	return roleBase{
		id:     id,
		logger: logger.WithFields("role", id),
	}
}

// ID returns the role id.
func (r *roleBase) ID() string {
	return r.id
}

// DecisionID returns the current decision round.
func (r *roleBase) DecisionID() uint64 {
	return r.decisionID
}

// isSenderBehind decides whether m belongs to an older round or ballot.
// A message from a newer round fast-forwards the role through reset and
// is then treated as current.
func (r *roleBase) isSenderBehind(m Message, tracked uint64, reset func(uint64)) bool {
	if m.DecisionID < r.decisionID {
		r.logger.Debug("decision id is behind, message dropped",
			"sender", m.SenderID, "decision", m.DecisionID, "expected", r.decisionID)
		return true
	}
	if m.DecisionID > r.decisionID {
		r.logger.Debug("peer is ahead, fast-forwarding",
			"sender", m.SenderID, "from", r.decisionID, "to", m.DecisionID)
		reset(m.DecisionID)
		return false
	}
	if m.Proposal < tracked {
		r.logger.Debug("proposal is behind, message dropped",
			"sender", m.SenderID, "proposal", m.Proposal, "expected", tracked)
		return true
	}
	return false
}

func (r *roleBase) logInbound(m Message) {
	if !r.logger.Enabled(logging.LevelDebug) {
		return
	}
	r.logger.Debug("inbound", "kind", m.Kind.String(), "message", m.String())
}
