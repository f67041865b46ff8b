package checkpoint

import (
	"context"
	"sync"

	"fieldops.app/incidentbot/internal/convo"
)

// MemoryStore is an in-process checkpoint store for tests and local
// development. Snapshots go through the same encode/decode round trip as
// the Redis store so state must survive serialization either way.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, identity string) (*convo.State, error) {
	s.mu.RLock()
	raw, ok := s.items[identity]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return convo.UnmarshalState(raw)
}

func (s *MemoryStore) Save(_ context.Context, identity string, state *convo.State) error {
	raw, err := state.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items[identity] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, identity string) error {
	s.mu.Lock()
	delete(s.items, identity)
	s.mu.Unlock()
	return nil
}
