package scope

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"clinicore/pkg/platform/sentinel"
)

// InMemoryStore is a filter-map entity store for unit tests and local runs.
// It implements the same matching semantics as the Postgres store: field
// equality, AND across filter entries.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]Record // entityType -> id -> record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]map[string]Record)}
}

func matches(record Record, filter Filter) bool {
	for field, want := range filter {
		got, ok := record[field]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func (s *InMemoryStore) table(entityType string) map[string]Record {
	t, ok := s.data[entityType]
	if !ok {
		t = make(map[string]Record)
		s.data[entityType] = t
	}
	return t
}

func (s *InMemoryStore) FindOne(_ context.Context, entityType string, filter Filter) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.data[entityType] {
		if matches(record, filter) {
			return record.clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindMany(_ context.Context, entityType string, filter Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, record := range s.data[entityType] {
		if matches(record, filter) {
			out = append(out, record.clone())
		}
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context, entityType string, filter Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, record := range s.data[entityType] {
		if matches(record, filter) {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) Create(_ context.Context, entityType string, record Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(entityType, record)
}

func (s *InMemoryStore) CreateMany(_ context.Context, entityType string, records []Record) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(records))
	for _, record := range records {
		created, err := s.createLocked(entityType, record)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (s *InMemoryStore) createLocked(entityType string, record Record) (Record, error) {
	stored := record.clone()
	recordID, _ := stored[FieldID].(string)
	if recordID == "" {
		recordID = uuid.NewString()
		stored[FieldID] = recordID
	}
	table := s.table(entityType)
	if _, exists := table[recordID]; exists {
		return nil, sentinel.ErrConflict
	}
	table[recordID] = stored
	return stored.clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, entityType string, filter Filter, changes Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for recordID, record := range s.data[entityType] {
		if !matches(record, filter) {
			continue
		}
		updated := record.clone()
		for field, value := range changes {
			updated[field] = value
		}
		s.data[entityType][recordID] = updated
		n++
	}
	return n, nil
}

func (s *InMemoryStore) Delete(_ context.Context, entityType string, filter Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for recordID, record := range s.data[entityType] {
		if matches(record, filter) {
			delete(s.data[entityType], recordID)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) Upsert(_ context.Context, entityType string, filter Filter, record Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordID, _ := record[FieldID].(string)
	if recordID != "" {
		if existing, ok := s.data[entityType][recordID]; ok {
			// Replace only when the existing row matches the (scoped) filter;
			// otherwise the row is invisible to the caller.
			if !matches(existing, filter) {
				return nil, sentinel.ErrNotFound
			}
			updated := existing.clone()
			for field, value := range record {
				updated[field] = value
			}
			s.data[entityType][recordID] = updated
			return updated.clone(), nil
		}
	}
	return s.createLocked(entityType, record)
}

var _ EntityStore = (*InMemoryStore)(nil)
