// Package loader turns stored template sources into parsed, shared documents.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/zpt/internal/logging"
	"github.com/aretw0/zpt/pkg/adapters/markup"
	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// Cache implements ports.TemplateLoader over a SourceStore.
// Parsed documents are canonical: they are shared by every render and never mutated.
// Concurrent first loads of the same name parse it once.
type Cache struct {
	store    ports.SourceStore
	provider func(name string) ports.DocumentProvider
	logger   *slog.Logger

	mu    sync.RWMutex
	docs  map[string]*domain.Document
	gen   uint64
	group singleflight.Group
}

// Option configures the Cache.
type Option func(*Cache)

// WithProvider parses every template with p.
func WithProvider(p ports.DocumentProvider) Option {
	return func(c *Cache) {
		if p != nil {
			c.provider = func(string) ports.DocumentProvider { return p }
		}
	}
}

// WithProviderFunc picks a provider per template name.
func WithProviderFunc(fn func(name string) ports.DocumentProvider) Option {
	return func(c *Cache) {
		if fn != nil {
			c.provider = fn
		}
	}
}

// WithLogger configures a logger for the Cache.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache creates a loader reading from store. By default the provider is
// chosen from the file extension (see markup.ForFile).
func NewCache(store ports.SourceStore, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		provider: markup.ForFile,
		logger:   logging.NewNop(),
		docs:     make(map[string]*domain.Document),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) cached(name string) (*domain.Document, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[name]
	return doc, c.gen, ok
}

// Load returns the parsed document for name, reading and parsing it on first use.
func (c *Cache) Load(ctx context.Context, name string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc, _, ok := c.cached(name); ok {
		return doc, nil
	}

	// The shared load outlives any single caller's cancellation.
	ch := c.group.DoChan(name, func() (any, error) {
		doc, gen, ok := c.cached(name)
		if ok {
			return doc, nil
		}
		doc, err := c.parse(context.WithoutCancel(ctx), name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.docs[name] = doc
		}
		c.mu.Unlock()
		return doc, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Document), nil
	}
}

func (c *Cache) parse(ctx context.Context, name string) (*domain.Document, error) {
	src, err := c.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	doc, err := c.provider(name).Read(ctx, name, bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	c.logger.DebugContext(ctx, "template parsed", "template", name, "bytes", len(src))
	return doc, nil
}

// Invalidate drops the cached document for name, or all documents when name is empty.
// A load already in flight is not cached.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if name == "" {
		clear(c.docs)
		return
	}
	delete(c.docs, name)
	c.group.Forget(name)
}

// Names lists the templates available in the underlying store.
func (c *Cache) Names(ctx context.Context) ([]string, error) {
	return c.store.List(ctx)
}

// Provider returns the provider used for name, so output is written in the dialect it was read in.
func (c *Cache) Provider(name string) ports.DocumentProvider {
	return c.provider(name)
}
