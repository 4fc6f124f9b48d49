package sanctum

import (
	"context"
	"sync"

	"github.com/mrlokans/sanctum-auth/internal/entities"
)

// StateStore holds the AuthState of the current visitor. Implementations decide
// what "current" means: a process-wide record, or one record per session found
// through ctx.
type StateStore interface {
	// Load returns the visitor's state, or the zero state when none was saved.
	Load(ctx context.Context) entities.AuthState
	// Save replaces the visitor's state.
	Save(ctx context.Context, state entities.AuthState)
}

// MemoryStore keeps a single AuthState for the whole process, which is what a
// CLI or any other single-user "browser" needs. Concurrent writers are not
// coordinated: the last Save wins.
type MemoryStore struct {
	mu    sync.RWMutex
	state entities.AuthState
}

// NewMemoryStore creates a store holding the default state.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: entities.NewAuthState()}
}

func (s *MemoryStore) Load(ctx context.Context) entities.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *MemoryStore) Save(ctx context.Context, state entities.AuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
