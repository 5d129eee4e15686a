package account

import (
	"context"
	"sync"

	"carebridge/internal/directory/models"
	id "carebridge/pkg/domain"
	"carebridge/pkg/platform/sentinel"
)

// InMemoryStore keeps accounts in a map. It intentionally favors clarity over
// performance and backs unit tests and dependency-free deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]models.Account
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[id.AccountID]models.Account)}
}

func (s *InMemoryStore) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.accounts {
		if existing.IdentityID == account.IdentityID {
			return sentinel.ErrConflict
		}
	}
	s.accounts[account.ID] = clone(account)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.accounts[account.ID] = clone(account)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if account, ok := s.accounts[accountID]; ok {
		out := account
		return &out, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByIdentity(_ context.Context, identityID string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.IdentityID == identityID {
			out := account
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func clone(a *models.Account) models.Account {
	return *a
}
