package tales

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/resolve"
)

// PathPart is one '/'-separated step. An indirect part ("?name") takes its
// key from the local variable called Name.
type PathPart struct {
	Name     string
	Indirect bool
}

// PathComponent is one '|'-separated alternative.
type PathComponent struct {
	Parts []PathPart
}

func (c PathComponent) String() string {
	parts := make([]string, len(c.Parts))
	for i, p := range c.Parts {
		if p.Indirect {
			parts[i] = "?" + p.Name
		} else {
			parts[i] = p.Name
		}
	}
	return strings.Join(parts, "/")
}

// Path is a parsed path expression: alternatives tried left to right.
type Path struct {
	Text       string
	Components []PathComponent
}

// ParsePath parses "a/b | c/?d". Empty parts are structural errors.
func ParsePath(text string) (*Path, error) {
	p := &Path{Text: text}
	for _, raw := range strings.Split(text, "|") {
		comp := strings.TrimSpace(raw)
		if comp == "" {
			return nil, domain.NewStructuralError(text, domain.ErrEmptyPathPart, "empty alternative")
		}
		var c PathComponent
		for _, seg := range strings.Split(comp, "/") {
			part := PathPart{Name: strings.TrimSpace(seg)}
			if strings.HasPrefix(part.Name, "?") {
				part.Indirect = true
				part.Name = strings.TrimSpace(part.Name[1:])
			}
			if part.Name == "" {
				return nil, domain.NewStructuralError(text, domain.ErrEmptyPathPart, fmt.Sprintf("in %q", comp))
			}
			c.Parts = append(c.Parts, part)
		}
		p.Components = append(p.Components, c)
	}
	return p, nil
}

// RootLookup finds the value a path component starts from.
type RootLookup interface {
	LookupRoot(ctx context.Context, name string, ectx *ExpressionContext, resolver resolve.Resolver) (any, bool, error)
}

// RootLookupFunc adapts a function to RootLookup.
type RootLookupFunc func(ctx context.Context, name string, ectx *ExpressionContext, resolver resolve.Resolver) (any, bool, error)

// LookupRoot calls f.
func (f RootLookupFunc) LookupRoot(ctx context.Context, name string, ectx *ExpressionContext, resolver resolve.Resolver) (any, bool, error) {
	return f(ctx, name, ectx, resolver)
}

// LocalRoots searches only local bindings.
var LocalRoots = RootLookupFunc(func(_ context.Context, name string, ectx *ExpressionContext, _ resolve.Resolver) (any, bool, error) {
	v, ok := ectx.LookupLocal(name)
	return v, ok, nil
})

// GlobalRoots searches only root-level bindings and built-ins.
var GlobalRoots = RootLookupFunc(func(_ context.Context, name string, ectx *ExpressionContext, _ resolve.Resolver) (any, bool, error) {
	v, ok := ectx.LookupGlobal(name)
	return v, ok, nil
})

// DefaultRoots searches locals, then globals, then members of the model.
var DefaultRoots = RootLookupFunc(func(ctx context.Context, name string, ectx *ExpressionContext, resolver resolve.Resolver) (any, bool, error) {
	if v, ok := ectx.LookupLocal(name); ok {
		return v, true, nil
	}
	if v, ok := ectx.LookupGlobal(name); ok {
		return v, true, nil
	}
	model := ectx.Model()
	if model == nil {
		return nil, false, nil
	}
	return resolver.TryGetValue(ctx, name, model)
})

// PathEvaluator evaluates path expressions with a fixed root lookup.
type PathEvaluator struct {
	roots    RootLookup
	resolver resolve.Resolver
}

// NewPathEvaluator creates a path evaluator. A nil resolver uses resolve.Default().
func NewPathEvaluator(roots RootLookup, resolver resolve.Resolver) *PathEvaluator {
	if resolver == nil {
		resolver = resolve.Default()
	}
	return &PathEvaluator{roots: roots, resolver: resolver}
}

// Evaluate parses expr.Text as a path and evaluates it.
func (p *PathEvaluator) Evaluate(ctx context.Context, expr Expression, ectx *ExpressionContext) (Result, error) {
	path, err := ParsePath(expr.Text)
	if err != nil {
		return Result{}, err
	}
	return p.EvaluatePath(ctx, path, ectx)
}

// EvaluatePath tries each component in order and returns the first success.
// When every component fails the result is Cancel. A host object error stops
// the search and is returned as an EvaluationError.
func (p *PathEvaluator) EvaluatePath(ctx context.Context, path *Path, ectx *ExpressionContext) (Result, error) {
	for _, comp := range path.Components {
		v, ok, err := p.evaluateComponent(ctx, comp, ectx)
		if err != nil {
			return Result{}, domain.NewEvaluationError(path.Text, err)
		}
		if ok {
			return ValueOf(v), nil
		}
	}
	return Cancel, nil
}

func (p *PathEvaluator) evaluateComponent(ctx context.Context, comp PathComponent, ectx *ExpressionContext) (any, bool, error) {
	first, ok := p.partKey(comp.Parts[0], ectx)
	if !ok {
		return nil, false, nil
	}
	value, found, err := p.roots.LookupRoot(ctx, first, ectx, p.resolver)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", first, err)
	}
	if !found {
		return nil, false, nil
	}
	for _, part := range comp.Parts[1:] {
		if value == nil || IsAbortActionToken(value) {
			return nil, false, nil
		}
		key, ok := p.partKey(part, ectx)
		if !ok {
			return nil, false, nil
		}
		value, found, err = p.resolver.TryGetValue(ctx, key, value)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", key, err)
		}
		if !found {
			return nil, false, nil
		}
	}
	return value, true, nil
}

func (p *PathEvaluator) partKey(part PathPart, ectx *ExpressionContext) (string, bool) {
	if !part.Indirect {
		return part.Name, true
	}
	v, ok := ectx.LookupLocal(part.Name)
	if !ok || v == nil || IsAbortActionToken(v) {
		return "", false
	}
	return FormatValue(v), true
}
