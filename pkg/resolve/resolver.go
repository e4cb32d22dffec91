package resolve

import "context"

// NamedValueProvider lets host objects answer named lookups themselves.
// When an object implements it, its answer is final: the chain does not fall back.
type NamedValueProvider interface {
	LookupValue(ctx context.Context, name string) (value any, found bool, err error)
}

// Resolver reads a named value from an arbitrary object.
// A missing value is reported with found == false, never as an error.
// Errors are reserved for host objects that fail while being read.
type Resolver interface {
	TryGetValue(ctx context.Context, name string, object any) (value any, found bool, err error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, name string, object any) (any, bool, error)

// TryGetValue calls f.
func (f ResolverFunc) TryGetValue(ctx context.Context, name string, object any) (any, bool, error) {
	return f(ctx, name, object)
}

// Strategy is one link of the chain. It handles what it can and delegates the rest to next.
type Strategy func(next Resolver) Resolver

// notFound terminates every chain.
var notFound = ResolverFunc(func(context.Context, string, any) (any, bool, error) {
	return nil, false, nil
})

// NewChain composes strategies so that the first one runs first.
func NewChain(strategies ...Strategy) Resolver {
	var r Resolver = notFound
	for i := len(strategies) - 1; i >= 0; i-- {
		r = strategies[i](r)
	}
	return r
}

// DefaultStrategies returns the standard chain order: named-value providers,
// string-keyed maps, sequences, then reflection.
func DefaultStrategies() []Strategy {
	return []Strategy{
		NamedValues,
		Maps,
		Sequences,
		Reflection,
	}
}

// Default returns a resolver built from DefaultStrategies.
func Default() Resolver {
	return NewChain(DefaultStrategies()...)
}

// WithStrategies returns the default chain with host strategies inserted
// ahead of the reflection fallback.
func WithStrategies(extra ...Strategy) Resolver {
	defaults := DefaultStrategies()
	strategies := make([]Strategy, 0, len(defaults)+len(extra))
	strategies = append(strategies, defaults[:len(defaults)-1]...)
	strategies = append(strategies, extra...)
	strategies = append(strategies, defaults[len(defaults)-1])
	return NewChain(strategies...)
}
