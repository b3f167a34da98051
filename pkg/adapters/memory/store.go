package memory

import (
	"context"
	"sync"

	"github.com/picloud/picloud/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.State
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.State),
	}
}

// Save persists the state in memory.
func (s *Store) Save(ctx context.Context, name string, state domain.State) error {
	// Copy to ensure isolation, similar to serialization
	copied := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = copied
	return nil
}

// Load retrieves the state from memory.
func (s *Store) Load(ctx context.Context, name string) (domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[name]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}

	// Copy on read so the caller can't mutate stored state
	return state.Clone(), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns stored snapshot names.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	return names, nil
}
