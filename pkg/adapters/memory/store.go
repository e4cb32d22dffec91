package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/zpt/pkg/domain"
)

// Store implements ports.WritableSourceStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a store holding the given sources.
func NewStore(sources map[string]string) *Store {
	data := make(map[string][]byte, len(sources))
	for name, src := range sources {
		data[name] = []byte(src)
	}
	return &Store{data: data}
}

// Get returns a copy of the source stored under name.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.data[name]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	// Copy on read so callers can't mutate the stored source.
	return append([]byte(nil), src...), nil
}

// Put stores a copy of source under name.
func (s *Store) Put(ctx context.Context, name string, source []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append([]byte(nil), source...)
	return nil
}

// Delete removes name.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns the stored names.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names) // Deterministic order
	return names, nil
}
