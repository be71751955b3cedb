package paxos

// Listener receives proposer state transitions and consensus decisions.
type Listener interface {
	// OnStateChange is called when a proposer actually changes state.
	OnStateChange(roleID string, state State)
	// OnConsensus is called once per decision round when a value is confirmed.
	OnConsensus(decisionID uint64, value string)
}

// ListenerFuncs adapts two functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	StateChange func(roleID string, state State)
	Consensus   func(decisionID uint64, value string)
}

// OnStateChange implements Listener.
func (f ListenerFuncs) OnStateChange(roleID string, state State) {
	if f.StateChange != nil {
		f.StateChange(roleID, state)
	}
}

// OnConsensus implements Listener.
func (f ListenerFuncs) OnConsensus(decisionID uint64, value string) {
	if f.Consensus != nil {
		f.Consensus(decisionID, value)
	}
}

// NopListener discards every notification.
type NopListener struct{}

func (NopListener) OnStateChange(string, State) {}
func (NopListener) OnConsensus(uint64, string)  {}
