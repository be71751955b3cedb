package paxos

import "github.com/KilimcininKorOglu/lightpaxos/internal/logging"

// MaxWrongValueStreak is the number of conflicting prepares an acceptor
// drops before it releases its accepted value.
const MaxWrongValueStreak = 4

// Acceptor votes on prepare and accept requests.
type Acceptor struct {
	roleBase

	lastPromised     uint64
	lastAccepted     uint64
	lastPromisedFrom string
	acceptedValue    string
	wrongValueStreak int
}

// NewAcceptor creates an acceptor holding no value.
func NewAcceptor(id string, logger logging.Logger) (*Acceptor, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if !IsValidIdentifier(id) {
		return nil, ErrInvalidIdentifier
	}
	return &Acceptor{
		roleBase:      newRoleBase(id, logger),
		acceptedValue: NoValue,
	}, nil
}

// AcceptedValue returns the value currently held, NoValue if none.
func (a *Acceptor) AcceptedValue() string {
	return a.acceptedValue
}

// LastPromised returns the ballot of the last promise.
func (a *Acceptor) LastPromised() uint64 {
	return a.lastPromised
}

// LastAccepted returns the ballot of the last accepted request.
func (a *Acceptor) LastAccepted() uint64 {
	return a.lastAccepted
}

// WrongValueStreak returns the number of prepares dropped since the value was accepted.
func (a *Acceptor) WrongValueStreak() int {
	return a.wrongValueStreak
}

// OnPrepare answers a prepare request.
func (a *Acceptor) OnPrepare(m Message) Message {
	a.logInbound(m)

	if a.isSenderBehind(m, a.lastPromised, a.Reset) {
		a.logger.Warn("sender is behind, sending reject",
			"sender", m.SenderID, "decision", a.decisionID)
		return Message{
			DecisionID: a.decisionID,
			Kind:       KindRejectReply,
			SenderID:   a.id,
			Proposal:   a.lastPromised,
			Value:      a.acceptedValue,
		}
	}

	if a.acceptedValue != NoValue {
		a.wrongValueStreak++
		a.logger.Warn("value already accepted, prepare dropped",
			"sender", m.SenderID, "accepted", a.acceptedValue, "streak", a.wrongValueStreak)
		if a.wrongValueStreak > MaxWrongValueStreak {
			a.acceptedValue = NoValue
			a.wrongValueStreak = 0
			a.logger.Info("wrong value streak exceeded, accepted value released")
		}
		return Message{}
	}

	a.lastPromised = m.Proposal
	a.lastPromisedFrom = m.SenderID
	return Message{
		DecisionID: a.decisionID,
		Kind:       KindPromiseReply,
		SenderID:   a.id,
		Proposal:   m.Proposal,
		Value:      m.Value,
	}
}

// OnAccept answers an accept request. Only the sender of the last promised
// ballot can get its value accepted.
func (a *Acceptor) OnAccept(m Message) Message {
	a.logInbound(m)

	if a.isSenderBehind(m, a.lastPromised, a.Reset) {
		return Message{}
	}

	if m.Proposal != a.lastPromised || m.SenderID != a.lastPromisedFrom {
		a.logger.Debug("accept does not match last promise, dropped",
			"sender", m.SenderID, "proposal", m.Proposal,
			"promisedTo", a.lastPromisedFrom, "promised", a.lastPromised)
		return Message{}
	}

	a.lastAccepted = m.Proposal
	a.acceptedValue = m.Value
	a.wrongValueStreak = 0
	return Message{
		DecisionID: m.DecisionID,
		Kind:       KindAcceptedValue,
		SenderID:   a.id,
		Proposal:   a.lastAccepted,
		Value:      a.acceptedValue,
	}
}

// Reset moves the acceptor to decisionID with no value and no ballots.
func (a *Acceptor) Reset(decisionID uint64) {
	a.decisionID = decisionID
	a.acceptedValue = NoValue
	a.lastPromised = 0
	a.lastAccepted = 0
}
