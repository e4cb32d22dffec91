package zpt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/zpt/internal/logging"
	"github.com/aretw0/zpt/internal/runtime"
	"github.com/aretw0/zpt/pkg/adapters/markup"
	"github.com/aretw0/zpt/pkg/config"
	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/loader"
	"github.com/aretw0/zpt/pkg/ports"
	"github.com/aretw0/zpt/pkg/resolve"
	"github.com/aretw0/zpt/pkg/tales"
)

// ErrNoLoader is returned by New when no template source was configured.
var ErrNoLoader = errors.New("no template loader configured (use WithLoader, WithStore or WithConfig)")

// ErrListUnsupported is returned by Templates when the loader cannot enumerate templates.
var ErrListUnsupported = errors.New("current loader does not support listing templates")

// Engine is the high-level entry point of the library. It loads templates by
// name, expands them and serializes the result. It is safe for concurrent use.
type Engine struct {
	runtime    *runtime.Engine
	dispatcher *tales.Dispatcher
	loader     ports.TemplateLoader
	store      ports.SourceStore
	provider   ports.DocumentProvider
	resolver   resolve.Resolver
	evaluators []namedEvaluator
	options    domain.RenderOptions
	config     *config.Config
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
}

type namedEvaluator struct {
	prefix string
	ev     tales.Evaluator
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a TemplateLoader, bypassing the default cached loader.
func WithLoader(l ports.TemplateLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithStore reads template sources from s through a parsing cache.
func WithStore(s ports.SourceStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithProvider forces one markup dialect for reading and writing templates.
// By default the dialect follows the template's file extension.
func WithProvider(p ports.DocumentProvider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithEvaluator registers an expression evaluator for prefix, replacing a
// built-in one of the same name.
func WithEvaluator(prefix string, ev tales.Evaluator) Option {
	return func(e *Engine) {
		e.evaluators = append(e.evaluators, namedEvaluator{prefix: prefix, ev: ev})
	}
}

// WithResolver sets the value resolver used by path expressions.
func WithResolver(r resolve.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithOptions sets the default render options.
func WithOptions(opts domain.RenderOptions) Option {
	return func(e *Engine) {
		e.options = opts
	}
}

// WithConfig takes render options, markup format and template source from cfg.
// Options given after it still override.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.config = &cfg
		e.options = cfg.RenderOptions()
	}
}

// New initializes an Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{options: domain.DefaultRenderOptions()}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	normalized, err := eng.options.Normalize()
	if err != nil {
		return nil, err
	}
	eng.options = normalized

	if eng.provider == nil && eng.config != nil && eng.config.Format != "" {
		if eng.provider, err = markup.ForFormat(eng.config.Format); err != nil {
			return nil, err
		}
	}

	if eng.loader == nil {
		if eng.store == nil && eng.config != nil {
			if eng.store, err = OpenStore(*eng.config); err != nil {
				return nil, err
			}
		}
		if eng.store == nil {
			return nil, ErrNoLoader
		}
		eng.loader = loader.NewCache(eng.store,
			loader.WithProvider(eng.provider),
			loader.WithLogger(eng.logger),
		)
	}

	eng.dispatcher = tales.Standard(eng.resolver, eng.loader, tales.WithDefaultPrefix(eng.options.DefaultPrefix))
	for _, ne := range eng.evaluators {
		eng.dispatcher.Register(ne.prefix, ne.ev)
	}

	eng.runtime = runtime.NewEngine(eng.dispatcher,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
	)
	return eng, nil
}

// RenderOption adjusts a single render.
type RenderOption func(*renderRequest)

type renderRequest struct {
	options domain.RenderOptions
	globals map[string]any
}

// WithGlobals adds root bindings visible to every expression of the render.
func WithGlobals(globals map[string]any) RenderOption {
	return func(r *renderRequest) {
		r.globals = globals
	}
}

// WithOptionsFunc modifies the engine's render options for one render.
// fn gets a copy of the options, but the Keywords map is shared: replace it, do not mutate it.
func WithOptionsFunc(fn func(*domain.RenderOptions)) RenderOption {
	return func(r *renderRequest) {
		fn(&r.options)
	}
}

// Render loads the template called name, expands it against model and writes
// the result to w. Nothing is written when the render fails.
func (e *Engine) Render(ctx context.Context, name string, model any, w io.Writer, opts ...RenderOption) error {
	doc, err := e.loader.Load(ctx, name)
	if err != nil {
		return err
	}
	return e.render(ctx, doc, e.providerFor(name), model, w, opts)
}

// RenderDocument expands an already parsed document. doc is not modified.
func (e *Engine) RenderDocument(ctx context.Context, doc *domain.Document, model any, w io.Writer, opts ...RenderOption) error {
	return e.render(ctx, doc, e.providerFor(doc.Name), model, w, opts)
}

func (e *Engine) render(ctx context.Context, doc *domain.Document, provider ports.DocumentProvider, model any, w io.Writer, opts []RenderOption) error {
	req := renderRequest{options: e.options}
	for _, opt := range opts {
		opt(&req)
	}

	out, err := e.runtime.Render(ctx, runtime.Request{
		Template: doc,
		Model:    model,
		Options:  req.options,
		Globals:  req.globals,
	})
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := provider.Write(ctx, out, &buf, req.options); err != nil {
		return fmt.Errorf("failed to write %s: %w", doc.Name, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Parse reads a template from r in the dialect chosen for name.
func (e *Engine) Parse(ctx context.Context, name string, r io.Reader) (*domain.Document, error) {
	return e.providerFor(name).Read(ctx, name, r)
}

// Check loads name and reports its malformed statements without rendering it.
func (e *Engine) Check(ctx context.Context, name string) ([]*domain.RenderError, error) {
	doc, err := e.loader.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.CheckDocument(doc), nil
}

// CheckDocument reports the malformed statements of doc.
func (e *Engine) CheckDocument(doc *domain.Document) []*domain.RenderError {
	return runtime.Check(doc, e.dispatcher)
}

// Templates lists the templates the loader can serve.
func (e *Engine) Templates(ctx context.Context) ([]string, error) {
	if l, ok := e.loader.(interface {
		Names(ctx context.Context) ([]string, error)
	}); ok {
		return l.Names(ctx)
	}
	if e.store != nil {
		return e.store.List(ctx)
	}
	return nil, ErrListUnsupported
}

// Invalidate drops cached documents (all of them when name is empty) so the
// next render reads the source again.
func (e *Engine) Invalidate(name string) {
	if inv, ok := e.loader.(ports.Invalidator); ok {
		inv.Invalidate(name)
	}
}

// Loader returns the underlying TemplateLoader used by the engine.
func (e *Engine) Loader() ports.TemplateLoader {
	return e.loader
}

// Options returns the engine's default render options.
func (e *Engine) Options() domain.RenderOptions {
	return e.options
}

func (e *Engine) providerFor(name string) ports.DocumentProvider {
	if e.provider != nil {
		return e.provider
	}
	if p, ok := e.loader.(interface {
		Provider(name string) ports.DocumentProvider
	}); ok {
		return p.Provider(name)
	}
	return markup.ForFile(name)
}
