package tales

import (
	"context"
	"fmt"

	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/registry"
)

// Standard expression prefixes.
const (
	PrefixPath    = "path"
	PrefixLocal   = "local"
	PrefixGlobal  = "global"
	PrefixString  = "string"
	PrefixNot     = "not"
	PrefixExists  = "exists"
	PrefixLoad    = "load"
	DefaultPrefix = PrefixPath
)

// Dispatcher routes expression text to the evaluator registered for its prefix.
// Unprefixed text goes to the render's default prefix.
type Dispatcher struct {
	evaluators    *registry.Registry[Evaluator]
	defaultPrefix string
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDefaultPrefix sets the prefix used for unprefixed expressions when the
// render options do not name one.
func WithDefaultPrefix(prefix string) DispatcherOption {
	return func(d *Dispatcher) {
		d.defaultPrefix = prefix
	}
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		evaluators:    registry.NewRegistry[Evaluator](),
		defaultPrefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds or replaces the evaluator for prefix.
func (d *Dispatcher) Register(prefix string, ev Evaluator) {
	d.evaluators.Register(prefix, ev)
}

// Prefixes lists the registered prefixes.
func (d *Dispatcher) Prefixes() []string {
	return d.evaluators.Names()
}

// Clone returns a dispatcher with an independent registry.
func (d *Dispatcher) Clone() *Dispatcher {
	return &Dispatcher{evaluators: d.evaluators.Clone(), defaultPrefix: d.defaultPrefix}
}

// Parse splits text into prefix and remainder. A syntactic prefix that is not
// registered is a structural error; text without one uses the default prefix.
func (d *Dispatcher) Parse(text string, ectx *ExpressionContext) (Expression, error) {
	if prefix, rest, ok := splitPrefix(text); ok {
		if _, registered := d.evaluators.Lookup(prefix); registered {
			return Expression{Prefix: prefix, Text: rest}, nil
		}
		return Expression{}, domain.NewStructuralError(text, domain.ErrUnknownPrefix, prefix)
	}
	return Expression{Prefix: d.defaultFor(ectx), Text: text}, nil
}

func (d *Dispatcher) defaultFor(ectx *ExpressionContext) string {
	if ectx != nil {
		if p := ectx.Options().DefaultPrefix; p != "" {
			return p
		}
	}
	return d.defaultPrefix
}

// Evaluate parses text and runs the matching evaluator.
func (d *Dispatcher) Evaluate(ctx context.Context, text string, ectx *ExpressionContext) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	expr, err := d.Parse(text, ectx)
	if err != nil {
		return Result{}, err
	}
	ev, err := d.evaluators.MustLookup(expr.Prefix)
	if err != nil {
		return Result{}, domain.NewStructuralError(text, domain.ErrUnknownPrefix, fmt.Sprintf("default prefix %q", expr.Prefix))
	}
	return ev.Evaluate(ctx, expr, ectx)
}
