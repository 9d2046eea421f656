package audit

import (
	"context"
	"sync"

	id "clinicore/pkg/domain"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, tenantID id.TenantID, entityType, entityID string) ([]Event, error) {
	return s.filter(func(e Event) bool {
		return e.TenantID == tenantID && e.EntityType == entityType && e.EntityID == entityID
	}), nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, tenantID id.TenantID, actorID id.UserID) ([]Event, error) {
	return s.filter(func(e Event) bool {
		return e.TenantID == tenantID && e.ActorID == actorID
	}), nil
}

func (s *InMemoryStore) ListByCorrelation(_ context.Context, tenantID id.TenantID, correlationID string) ([]Event, error) {
	return s.filter(func(e Event) bool {
		return e.TenantID == tenantID && e.CorrelationID == correlationID
	}), nil
}

// All returns every stored event; test helper.
func (s *InMemoryStore) All() []Event {
	return s.filter(func(Event) bool { return true })
}

func (s *InMemoryStore) filter(keep func(Event) bool) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

var _ Store = (*InMemoryStore)(nil)
