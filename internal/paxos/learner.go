package paxos

import (
	"github.com/KilimcininKorOglu/lightpaxos/internal/logging"
	"github.com/KilimcininKorOglu/lightpaxos/internal/store"
)

// Learner records the decisions announced by consensus notifications.
type Learner struct {
	roleBase

	decisions store.DecisionStore
}

// NewLearner creates a learner. A nil store gets an unbounded memory store.
func NewLearner(id string, decisions store.DecisionStore, logger logging.Logger) (*Learner, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if decisions == nil {
		decisions = store.NewMemoryStore(0)
	}
	return &Learner{
		roleBase:  newRoleBase(id, logger),
		decisions: decisions,
	}, nil
}

// Decisions returns the store the learner writes to.
func (l *Learner) Decisions() store.DecisionStore {
	return l.decisions
}

// OnConsensus records a confirmed decision and reports whether it was new.
// Repeated notifications for the same decision id are ignored.
func (l *Learner) OnConsensus(m Message) bool {
	l.logInbound(m)
	if m.Kind != KindConsensusNotification || m.Value == NoValue {
		return false
	}

	recorded, err := l.decisions.Record(m.DecisionID, m.Value)
	if err != nil {
		l.logger.Error("failed to record decision", "decision", m.DecisionID, "error", err.Error())
		return false
	}
	if !recorded {
		l.logger.Debug("decision already recorded", "decision", m.DecisionID)
		return false
	}

	if m.DecisionID > l.decisionID {
		l.decisionID = m.DecisionID
	}
	l.logger.Info("decision learned", "decision", m.DecisionID, "value", m.Value, "sender", m.SenderID)
	return true
}

// Reset adopts decisionID.
func (l *Learner) Reset(decisionID uint64) {
	l.decisionID = decisionID
}
