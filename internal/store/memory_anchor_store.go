package store

import (
	"context"
	"sync"
)

// MemoryAnchorStore keeps anchors in a map. Used by tests and as a dev
// fallback when no Redis address is configured.
type MemoryAnchorStore struct {
	mu      sync.RWMutex
	anchors map[uint]Anchor
}

func NewMemoryAnchorStore() *MemoryAnchorStore {
	return &MemoryAnchorStore{anchors: make(map[uint]Anchor)}
}

func (s *MemoryAnchorStore) Put(_ context.Context, attemptID uint, anchor Anchor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchors[attemptID] = anchor
	return nil
}

func (s *MemoryAnchorStore) Get(_ context.Context, attemptID uint) (Anchor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	anchor, ok := s.anchors[attemptID]
	if !ok {
		return Anchor{}, ErrAnchorNotFound
	}
	return anchor, nil
}

func (s *MemoryAnchorStore) Clear(_ context.Context, attemptID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.anchors, attemptID)
	return nil
}
