package session

import (
	"sync"
)

// Registry holds the live engine for each attempt being taken right now.
// Lookups after a process restart miss here and re-attach through the
// factory, which rebuilds state from storage.
type Registry struct {
	mu      sync.Mutex
	engines map[uint]*Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[uint]*Engine)}
}

// Get returns the live engine for an attempt, if any.
func (r *Registry) Get(attemptID uint) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[attemptID]
	return e, ok
}

// GetOrCreate returns the live engine or builds one with the factory. The
// factory runs under the registry lock so two concurrent requests for the
// same attempt cannot build two engines.
func (r *Registry) GetOrCreate(attemptID uint, factory func() (*Engine, error)) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.engines[attemptID]; ok {
		return e, nil
	}
	e, err := factory()
	if err != nil {
		return nil, err
	}
	r.engines[attemptID] = e
	return e, nil
}

// Remove detaches and drops the engine for an attempt.
func (r *Registry) Remove(attemptID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.engines[attemptID]; ok {
		e.Detach()
		delete(r.engines, attemptID)
	}
}
