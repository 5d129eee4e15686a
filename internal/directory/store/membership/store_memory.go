package membership

import (
	"context"
	"sync"

	"carebridge/internal/directory/models"
	id "carebridge/pkg/domain"
	"carebridge/pkg/platform/sentinel"
)

// InMemoryStore keeps memberships in a map keyed by account ID.
type InMemoryStore struct {
	mu          sync.RWMutex
	memberships map[id.AccountID]models.Membership
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{memberships: make(map[id.AccountID]models.Membership)}
}

// Upsert is idempotent on account ID: an existing membership is left as-is so
// a commit retry never downgrades a tier.
func (s *InMemoryStore) Upsert(_ context.Context, membership *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memberships[membership.AccountID]; ok {
		return nil
	}
	s.memberships[membership.AccountID] = *membership
	return nil
}

func (s *InMemoryStore) FindByAccount(_ context.Context, accountID id.AccountID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if membership, ok := s.memberships[accountID]; ok {
		out := membership
		return &out, nil
	}
	return nil, sentinel.ErrNotFound
}
