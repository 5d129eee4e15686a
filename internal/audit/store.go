package audit

import (
	"context"
	"sort"
	"sync"

	id "carebridge/pkg/domain"
)

// Sink accepts audit events. Implementations must tolerate concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a sink with read access, used for inspection and tests.
type Store interface {
	Sink
	ListByFlow(ctx context.Context, flowID id.FlowID) ([]Event, error)
}

// MemoryStore keeps events in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByFlow(_ context.Context, flowID id.FlowID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, event := range s.events {
		if event.FlowID == flowID {
			out = append(out, event)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
