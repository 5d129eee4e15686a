package profile

import (
	"context"
	"sort"
	"strings"
	"sync"

	"carebridge/internal/directory/models"
	id "carebridge/pkg/domain"
	"carebridge/pkg/platform/sentinel"
)

// InMemoryStore keeps profiles in a map, with a linear scan for unclaimed
// search. Fine for tests and small deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.ProfileID]models.Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.ProfileID]models.Profile)}
}

func (s *InMemoryStore) Create(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; ok {
		return sentinel.ErrConflict
	}
	s.profiles[profile.ID] = cloneProfile(profile)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.profiles[profile.ID] = cloneProfile(profile)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, profileID id.ProfileID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if profile, ok := s.profiles[profileID]; ok {
		out := cloneProfile(&profile)
		return &out, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) SearchUnclaimed(_ context.Context, query string, limit int) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	var matches []*models.Profile
	for _, profile := range s.profiles {
		if profile.ClaimState != models.ClaimUnclaimed || profile.Type != models.ProfileOrganization {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(profile.Name), needle) {
			continue
		}
		out := cloneProfile(&profile)
		matches = append(matches, &out)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// cloneProfile copies the struct and its slice so callers never share backing
// arrays with the store.
func cloneProfile(p *models.Profile) models.Profile {
	out := *p
	if p.CareTypes != nil {
		out.CareTypes = append([]string(nil), p.CareTypes...)
	}
	return out
}
