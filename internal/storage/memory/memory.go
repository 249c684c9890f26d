package memory

import (
	"context"
	"sync"

	"moneycontrol/internal/storage"
)

// Store keeps values in process memory. Nothing survives a restart.
type Store struct {
	mu    sync.Mutex
	items map[string][]byte
}

var _ storage.KeyValue = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

func (s *Store) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Close() error {
	return nil
}
