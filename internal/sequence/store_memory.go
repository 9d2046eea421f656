package sequence

import (
	"context"
	"sync"
)

// InMemoryStore backs the generator for unit tests and local runs. The mutex
// makes increment-and-return atomic, matching the storage-level guarantee of
// the durable backends.
type InMemoryStore struct {
	mu       sync.Mutex
	counters map[Key]int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{counters: make(map[Key]int64)}
}

func (s *InMemoryStore) Increment(_ context.Context, key Key) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

func (s *InMemoryStore) Current(_ context.Context, key Key) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}

func (s *InMemoryStore) Reset(_ context.Context, key Key, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] = value
	return nil
}

var _ Store = (*InMemoryStore)(nil)
