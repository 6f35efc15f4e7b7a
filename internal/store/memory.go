package store

import (
	"context"
	"encoding/json"
	"sync"

	"telephony-bridge/internal/calls"
)

// MemoryStore keeps configs in process. Values are stored serialized so
// callers never share a *calls.Config with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: map[string][]byte{}}
}

func (s *MemoryStore) Save(ctx context.Context, conversationID string, cfg *calls.Config) error {
	if err := checkSave(conversationID, cfg); err != nil {
		return err
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[conversationID] = b
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, conversationID string) (*calls.Config, error) {
	s.mu.RLock()
	b, ok := s.configs[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var cfg calls.Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Len is the number of stored configs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.configs)
}
