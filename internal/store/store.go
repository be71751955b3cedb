// Package store keeps the decisions confirmed by a learner.
package store

import "errors"

// Store errors.
var (
	// ErrStoreClosed is returned when recording into a closed store.
	ErrStoreClosed = errors.New("store: closed")
)

// Decision is one confirmed (round, value) pair.
type Decision struct {
	ID    uint64
	Value string
}

// DecisionStore records confirmed decisions. Recording is idempotent per
// decision id: the first value wins.
type DecisionStore interface {
	// Record stores value for decisionID. It returns false when the
	// decision was already recorded.
	Record(decisionID uint64, value string) (bool, error)

	// Get returns the value recorded for decisionID.
	Get(decisionID uint64) (string, bool)

	// Last returns the decision with the highest id.
	Last() (Decision, bool)

	// Len returns the number of decisions held.
	Len() int

	// Close releases the store.
	Close() error
}
