package ports

import (
	"context"
	"io"

	"github.com/aretw0/zpt/pkg/domain"
)

// TemplateLoader resolves template names to parsed documents.
// Returned documents are canonical and must be treated as read-only.
type TemplateLoader interface {
	Load(ctx context.Context, name string) (*domain.Document, error)
}

// DocumentProvider reads and writes one markup dialect.
type DocumentProvider interface {
	// Read parses r into a document named name.
	Read(ctx context.Context, name string, r io.Reader) (*domain.Document, error)

	// Write serializes doc to w.
	Write(ctx context.Context, doc *domain.Document, w io.Writer, opts domain.RenderOptions) error
}

// Invalidator is implemented by loaders that cache parsed documents.
type Invalidator interface {
	// Invalidate drops the cached document for name, or every document when name is empty.
	Invalidate(name string)
}
