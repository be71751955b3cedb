package store

import (
	"container/list"
	"sync"
)

// MemoryStore is a DecisionStore held in memory. Nothing survives a restart.
type MemoryStore struct {
	limit     int
	decisions map[uint64]*list.Element
	order     *list.List // insertion order, oldest at the front
	last      Decision
	hasLast   bool
	closed    bool
	mu        sync.RWMutex
}

// NewMemoryStore creates a store keeping at most limit decisions.
// A limit of zero or less keeps everything.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{
		limit:     limit,
		decisions: make(map[uint64]*list.Element),
		order:     list.New(),
	}
}

// Record implements DecisionStore.
func (s *MemoryStore) Record(decisionID uint64, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}
	if _, ok := s.decisions[decisionID]; ok {
		return false, nil
	}

	d := Decision{ID: decisionID, Value: value}
	s.decisions[decisionID] = s.order.PushBack(d)
	if !s.hasLast || decisionID >= s.last.ID {
		s.last = d
		s.hasLast = true
	}

	for s.limit > 0 && s.order.Len() > s.limit {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.decisions, oldest.Value.(Decision).ID)
	}
	return true, nil
}

// Get implements DecisionStore.
func (s *MemoryStore) Get(decisionID uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	elem, ok := s.decisions[decisionID]
	if !ok {
		return "", false
	}
	return elem.Value.(Decision).Value, true
}

// Last implements DecisionStore.
func (s *MemoryStore) Last() (Decision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.hasLast
}

// Len implements DecisionStore.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}

// Decisions returns the held decisions, oldest first.
func (s *MemoryStore) Decisions() []Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Decision, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		result = append(result, e.Value.(Decision))
	}
	return result
}

// Close implements DecisionStore.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
