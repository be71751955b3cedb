// Package node runs the roles of one lightpaxos node.
//
// A Handler hosts up to one proposer, one acceptor and one learner. It
// reads datagrams from a transport.Transport, dispatches each decoded
// message to the roles and broadcasts their replies. Everything that
// touches role state runs on one event loop, fed by:
//
//   - the receive goroutine
//   - the proposer's timer (phase, heartbeat or standby)
//   - calls to Propose
//
// A proposer has a single deadline slot. Arming one timer supersedes the
// previous one; a firing that lost the race against a rearm carries an
// old generation and is ignored.
//
// # Timers
//
//   - Phase: a proposer waiting for promises retries with a higher ballot.
//   - Heartbeat: a primary starts the next round.
//   - Standby: a standby that heard no prepare for three heartbeats runs
//     for election.
//
// Service builds a Handler from a config.Config over UDP multicast.
package node
