package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/agentgraph/core"
)

// Store persists conversation states by session id.
type Store interface {
	// Load returns the stored state, or an empty state for unknown ids.
	Load(ctx context.Context, sessionID string) (core.ConversationState, error)

	// Save replaces the stored state.
	Save(ctx context.Context, sessionID string, state core.ConversationState) error

	// Delete forgets a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, sessionID string) error
}

type entry struct {
	state     core.ConversationState
	updatedAt time.Time
}

// InMemoryStore is a volatile Store keeping states in a process local map.
// It is safe for concurrent access and best suited for tests or a single CLI
// process. States are cloned on the way in and out to prevent external
// mutation of internal data.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]entry
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]entry)}
}

// Load implements Store.
func (s *InMemoryStore) Load(ctx context.Context, sessionID string) (core.ConversationState, error) {
	if err := ctx.Err(); err != nil {
		return core.ConversationState{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.sessions[sessionID]; ok {
		return e.state.Clone(), nil
	}
	return core.NewConversationState(), nil
}

// Save implements Store.
func (s *InMemoryStore) Save(ctx context.Context, sessionID string, state core.ConversationState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = entry{state: state.Clone(), updatedAt: time.Now()}
	return nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// IDs returns the known session ids, sorted.
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// UpdatedAt reports when a session was last saved.
func (s *InMemoryStore) UpdatedAt(sessionID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	return e.updatedAt, ok
}
