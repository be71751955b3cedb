// Package paxos implements the roles of a Paxos leader election.
//
// # Overview
//
// A group of nodes agrees, round after round, on which proposer is the
// primary. Every node hosts any subset of three roles:
//
//   - Proposer: runs elections and, once elected, re-asserts leadership
//     with a fresh round on every heartbeat
//   - Acceptor: promises and accepts ballots
//   - Learner: records the decided values
//
// The roles are plain state machines. They never touch the network: each
// operation takes an inbound Message and returns the reply to broadcast,
// or a Message of kind KindNone when nothing must be sent. The node
// package owns the transport, the timers and the dispatch.
//
// # Rounds and ballots
//
// Every message carries a decision id (the round) and a proposal (the
// ballot). A role drops a message from an older round or with a ballot
// lower than the one it tracks. A message from a newer round resets the
// role to that round first. This is the only catch-up mechanism.
//
// # Wire format
//
// One datagram per message, ASCII, comma separated:
//
//	decisionId,kind,senderId,proposal,value\n
//
// For example a prepare for round 0, ballot 1, from proposer p1:
//
//	0,1,p1,1,?
//
// Sender ids and values must not contain commas or line terminators.
//
// # Majority
//
// For a quorum of n acceptors a phase needs n/2+1 votes. Reaching the
// majority is checked with an exact count so the transition fires once
// per round.
package paxos
