package paxos

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/KilimcininKorOglu/lightpaxos/internal/store"
)

func consensus(decision uint64, value string) Message {
	return Message{DecisionID: decision, Kind: KindConsensusNotification, SenderID: value, Proposal: 1, Value: value}
}

func TestNewLearner(t *testing.T) {
	if _, err := NewLearner("", nil, nil); !errors.Is(err, ErrMissingID) {
		t.Errorf("NewLearner(\"\") error = %v, want ErrMissingID", err)
	}

	l, err := NewLearner("l1", nil, nil)
	if err != nil {
		t.Fatalf("NewLearner() error = %v", err)
	}
	if l.Decisions() == nil {
		t.Error("Decisions() = nil, want a default store")
	}
}

func TestLearnerOnConsensus(t *testing.T) {
	decisions := store.NewMemoryStore(0)
	l, err := NewLearner("l1", decisions, nil)
	if err != nil {
		t.Fatalf("NewLearner() error = %v", err)
	}

	for i, tt := range []struct {
		msg  Message
		want bool
	}{
		{consensus(0, "p1"), true},
		{consensus(1, "p1"), true},
		{consensus(1, "p2"), false},
		{consensus(0, "p1"), false},
	} {
		if got := l.OnConsensus(tt.msg); got != tt.want {
			t.Errorf("notification %d: OnConsensus() = %v, want %v", i, got, tt.want)
		}
	}

	if got, _ := decisions.Get(1); got != "p1" {
		t.Errorf("decision 1 = %q, want p1 (first value wins)", got)
	}
	if decisions.Len() != 2 {
		t.Errorf("Len() = %d, want 2", decisions.Len())
	}
	if l.DecisionID() != 1 {
		t.Errorf("DecisionID() = %d, want 1", l.DecisionID())
	}
}

func TestLearnerIgnores(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"no value", consensus(0, NoValue)},
		{"accepted value", accepted(0, "a1", 1, "p1")},
		{"ping", Message{Kind: KindPing, SenderID: "p1", Value: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decisions := store.NewMemoryStore(0)
			l, _ := NewLearner("l1", decisions, nil)

			if l.OnConsensus(tt.msg) {
				t.Error("OnConsensus() = true, want false")
			}
			if decisions.Len() != 0 {
				t.Errorf("recorded %v", decisions.Decisions())
			}
		})
	}
}

func TestLearnerOutOfOrder(t *testing.T) {
	l, _ := NewLearner("l1", nil, nil)

	l.OnConsensus(consensus(5, "p1"))
	if !l.OnConsensus(consensus(3, "p2")) {
		t.Error("late decision reported as a duplicate")
	}

	if l.DecisionID() != 5 {
		t.Errorf("DecisionID() = %d, want 5", l.DecisionID())
	}
	if got, ok := l.Decisions().Get(3); !ok || got != "p2" {
		t.Errorf("late decision 3 = %q, %v", got, ok)
	}
}

func TestLearnerClosedStore(t *testing.T) {
	decisions := store.NewMemoryStore(0)
	l, _ := NewLearner("l1", decisions, nil)
	decisions.Close()

	if l.OnConsensus(consensus(0, "p1")) || l.DecisionID() != 0 || decisions.Len() != 0 {
		t.Errorf("closed store recorded a decision")
	}
}

func TestDecisionIDNeverDecreases(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a, _ := NewAcceptor("a1", nil)
	l, _ := NewLearner("l1", nil, nil)

	senders := []string{"p1", "p2"}
	for i := 0; i < 2000; i++ {
		m := Message{
			DecisionID: uint64(rng.Intn(20)),
			Kind:       Kind(1 + rng.Intn(int(KindConsensusNotification))),
			SenderID:   senders[rng.Intn(len(senders))],
			Proposal:   uint64(rng.Intn(10)),
		}
		m.Value = m.SenderID

		before := [2]uint64{a.DecisionID(), l.DecisionID()}
		switch m.Kind {
		case KindPrepareRequest:
			a.OnPrepare(m)
		case KindAcceptRequest:
			a.OnAccept(m)
		case KindConsensusNotification:
			l.OnConsensus(m)
		}
		if a.DecisionID() < before[0] || l.DecisionID() < before[1] {
			t.Fatalf("step %d: %v moved decision ids from %v to [%d %d]",
				i, m, before, a.DecisionID(), l.DecisionID())
		}
	}
}

func TestListenerFuncs(t *testing.T) {
	var states []State
	var values []string
	f := ListenerFuncs{
		StateChange: func(_ string, s State) { states = append(states, s) },
		Consensus:   func(_ uint64, v string) { values = append(values, v) },
	}

	f.OnStateChange("p1", StatePrimary)
	f.OnConsensus(0, "p1")
	if len(states) != 1 || len(values) != 1 {
		t.Errorf("ListenerFuncs dispatched states %v values %v", states, values)
	}

	// Nil fields and the nop listener are safe to call
	ListenerFuncs{}.OnStateChange("p1", StateStandby)
	ListenerFuncs{}.OnConsensus(0, "p1")
	var nop Listener = NopListener{}
	nop.OnStateChange("p1", StateStandby)
	nop.OnConsensus(0, "p1")
}
