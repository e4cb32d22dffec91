package ports

import (
	"context"
)

// SourceStore holds raw template sources keyed by name.
type SourceStore interface {
	// Get returns the source stored under name.
	// Returns domain.ErrTemplateNotFound if there is none.
	Get(ctx context.Context, name string) ([]byte, error)

	// List returns every stored name in sorted order.
	List(ctx context.Context) ([]string, error)
}

// WritableSourceStore is a SourceStore that accepts updates.
type WritableSourceStore interface {
	SourceStore

	// Put stores source under name, replacing any previous value.
	Put(ctx context.Context, name string, source []byte) error

	// Delete removes name. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error
}
