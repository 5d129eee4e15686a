package draft

import (
	"context"
	"sync"

	"carebridge/internal/onboarding/models"
	"carebridge/pkg/platform/sentinel"
)

// InMemoryStore keeps the draft in process memory. Drafts then don't survive
// a restart, which is acceptable for tests and dependency-free deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	snapshot *models.DraftSnapshot
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, snapshot models.DraftSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &snapshot
	return nil
}

func (s *InMemoryStore) Load(_ context.Context) (models.DraftSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return models.DraftSnapshot{}, sentinel.ErrNotFound
	}
	return *s.snapshot, nil
}

func (s *InMemoryStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	return nil
}
