package store

import (
	"context"
	"sync"

	"rolesync/internal/claims"
)

// InMemoryStore keeps claim sets in memory for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	claims map[string]claims.ClaimSet
}

// NewInMemory constructs an empty in-memory claim store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{claims: make(map[string]claims.ClaimSet)}
}

// Get returns a copy of the user's claims. Users without claims get an empty set.
func (s *InMemoryStore) Get(_ context.Context, userID string) (claims.ClaimSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims[userID].Clone(), nil
}

// Set replaces the user's claims.
func (s *InMemoryStore) Set(_ context.Context, userID string, c claims.ClaimSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(userID, c)
	return nil
}

// Update applies fn under the store lock.
func (s *InMemoryStore) Update(_ context.Context, userID string, fn func(claims.ClaimSet) (claims.ClaimSet, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.claims[userID].Clone())
	if err != nil {
		return err
	}
	s.put(userID, next)
	return nil
}

func (s *InMemoryStore) put(userID string, c claims.ClaimSet) {
	if len(c) == 0 {
		delete(s.claims, userID)
		return
	}
	s.claims[userID] = c.Clone()
}
