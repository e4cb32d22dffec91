package dsl

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/zpt/pkg/domain"
)

// Library is a ports.TemplateLoader serving documents built in code.
// It is read-only after construction and safe for concurrent use.
type Library struct {
	docs map[string]*domain.Document
}

// NewLibrary indexes docs by name. A later document replaces an earlier one with the same name.
func NewLibrary(docs ...*domain.Document) *Library {
	l := &Library{docs: make(map[string]*domain.Document, len(docs))}
	for _, d := range docs {
		l.docs[d.Name] = d
	}
	return l
}

// Load returns the document called name.
func (l *Library) Load(ctx context.Context, name string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, ok := l.docs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
	}
	return doc, nil
}

// Names lists the documents in sorted order.
func (l *Library) Names(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(l.docs))
	for name := range l.docs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
