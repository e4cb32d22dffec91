package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps names to implementations. It is safe for concurrent use.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewRegistry creates a new empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]T),
	}
}

// Register adds an implementation under name.
// If an entry with the same name exists, it is overwritten.
func (r *Registry[T]) Register(name string, impl T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = impl
}

// Lookup returns the implementation registered under name.
func (r *Registry[T]) Lookup(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.entries[name]
	return impl, ok
}

// MustLookup is like Lookup but returns an error for unknown names.
func (r *Registry[T]) MustLookup(name string) (T, error) {
	impl, ok := r.Lookup(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("not registered: %s", name)
	}
	return impl, nil
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the registry.
func (r *Registry[T]) Clone() *Registry[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewRegistry[T]()
	for k, v := range r.entries {
		c.entries[k] = v
	}
	return c
}
