package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/zpt/internal/logging"
	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/metal"
	"github.com/aretw0/zpt/pkg/tales"
)

// Engine expands templates: it walks a document, resolves macros and applies
// TAL statements. It holds no per-render state and is safe for concurrent use.
type Engine struct {
	dispatcher *tales.Dispatcher
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// NewEngine creates an engine that evaluates expressions with dispatcher.
func NewEngine(dispatcher *tales.Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		dispatcher: dispatcher,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is one render.
type Request struct {
	// Template is the canonical document. It is never modified.
	Template *domain.Document
	Model    any
	Options  domain.RenderOptions
	// Globals are extra root bindings.
	Globals map[string]any
}

// Render expands a private copy of req.Template and returns it.
// On error the returned document is nil: partial output is never exposed.
func (e *Engine) Render(ctx context.Context, req Request) (*domain.Document, error) {
	if req.Template == nil {
		return nil, errors.New("render: nil template")
	}
	opts, err := req.Options.Normalize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if e.hooks.OnRenderStart != nil {
		e.hooks.OnRenderStart(ctx, &domain.RenderEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventRenderStart},
			Template:  req.Template.Name,
		})
	}

	doc := req.Template.Clone()
	w := &walker{
		engine:   e,
		opts:     opts,
		macros:   metal.NewResolver(e.dispatcher, opts.MaxMacroDepth),
		template: req.Template,
	}
	root := tales.NewRootContext(req.Model, tales.RootConfig{
		Template: req.Template,
		Options:  opts,
		Globals:  req.Globals,
	})
	err = w.visitChildren(ctx, doc.Root, root, 0, false)

	duration := time.Since(start)
	if e.hooks.OnRenderEnd != nil {
		e.hooks.OnRenderEnd(ctx, &domain.RenderEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRenderEnd},
			Template:  req.Template.Name,
			Duration:  duration,
			Err:       err,
		})
	}
	if err != nil {
		e.logger.DebugContext(ctx, "render failed", "template", req.Template.Name, "error", err)
		return nil, err
	}
	e.logger.DebugContext(ctx, "render complete", "template", req.Template.Name, "duration", duration)
	return doc, nil
}
