package metal

import (
	"context"
	"fmt"

	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/tales"
)

// ExpressionEvaluator evaluates METAL attribute expressions. *tales.Dispatcher implements it.
type ExpressionEvaluator interface {
	Evaluate(ctx context.Context, text string, ectx *tales.ExpressionContext) (tales.Result, error)
}

// Expansion is a macro ready to be spliced into a render.
type Expansion struct {
	// Node is an independent copy of the macro with every extend-macro chain applied.
	Node  *domain.Node
	Macro *domain.Macro
	// Extended names the macros this one extends, nearest first.
	Extended []string
}

// Resolver turns use-macro and extend-macro expressions into macro subtrees.
type Resolver struct {
	eval     ExpressionEvaluator
	maxDepth int
}

// NewResolver creates a resolver. maxDepth bounds extend-macro chains; zero uses the default.
func NewResolver(eval ExpressionEvaluator, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = domain.DefaultMaxMacroDepth
	}
	return &Resolver{eval: eval, maxDepth: maxDepth}
}

// GetMacro evaluates expression and returns a private copy of the macro it names.
// depth is the nesting level of the caller, counted against the resolver's limit.
func (r *Resolver) GetMacro(ctx context.Context, expression string, ectx *tales.ExpressionContext, depth int) (*Expansion, error) {
	macro, err := r.lookup(ctx, expression, ectx, depth)
	if err != nil {
		return nil, err
	}
	return r.Expand(ctx, macro, ectx, depth+1)
}

// Expand copies m and applies its extend-macro chain. It is also how an element
// that carries extend-macro without being used is rendered.
func (r *Resolver) Expand(ctx context.Context, m *domain.Macro, ectx *tales.ExpressionContext, depth int) (*Expansion, error) {
	exp := &Expansion{Macro: m}
	var err error
	exp.Node, err = r.effective(ctx, m, ectx, depth, &exp.Extended)
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func (r *Resolver) lookup(ctx context.Context, expression string, ectx *tales.ExpressionContext, depth int) (*domain.Macro, error) {
	if depth >= r.maxDepth {
		return nil, domain.NewStructuralError(expression, domain.ErrMacroDepth, fmt.Sprintf("limit %d", r.maxDepth))
	}
	res, err := r.eval.Evaluate(ctx, expression, ectx)
	if err != nil {
		return nil, err
	}
	if res.Cancelled() {
		return nil, &domain.MacroNotFoundError{Expression: expression, Got: "default"}
	}
	macro, ok := ToMacro(res.Value())
	if !ok {
		got := "nothing"
		if v := res.Value(); v != nil {
			got = fmt.Sprintf("%T", v)
		}
		return nil, &domain.MacroNotFoundError{Expression: expression, Got: got}
	}
	return macro, nil
}

// effective applies the extend-macro chain of m to a fresh copy of its subtree.
// Fills declared by the extending macro are applied to its base and stay
// fillable, so a fill nearer the use-site overrides them.
func (r *Resolver) effective(ctx context.Context, m *domain.Macro, ectx *tales.ExpressionContext, depth int, chain *[]string) (*domain.Node, error) {
	node := m.Node.Clone()
	ext, ok := node.Attr(domain.NamespaceMETAL, domain.MetalExtendMacro)
	if !ok {
		return node, nil
	}
	// The base is named relative to the template that defines m.
	mctx := ectx
	if m.Document != nil {
		mctx = ectx.WithTemplate(m.Document)
	}
	base, err := r.lookup(ctx, ext, mctx, depth)
	if err != nil {
		return nil, err
	}
	*chain = append(*chain, base.Name)
	baseNode, err := r.effective(ctx, base, mctx, depth+1, chain)
	if err != nil {
		return nil, err
	}
	FillSlots(baseNode, node)
	baseNode.RemoveAttr(domain.NamespaceMETAL, domain.MetalExtendMacro)
	if m.Name != "" {
		baseNode.SetAttr(domain.Attr{Namespace: domain.NamespaceMETAL, Prefix: metalPrefix(node), Name: domain.MetalDefineMacro, Value: m.Name})
	}
	return baseNode, nil
}

// ToMacro interprets an evaluated value as a macro. Documents stand for their
// document element; bare element nodes are anonymous macros.
func ToMacro(v any) (*domain.Macro, bool) {
	switch m := v.(type) {
	case *domain.Macro:
		return m, m != nil && m.Node != nil
	case domain.Macro:
		return &m, m.Node != nil
	case *domain.Document:
		if m == nil {
			return nil, false
		}
		el := m.Element()
		if el == nil {
			return nil, false
		}
		name, _ := el.Attr(domain.NamespaceMETAL, domain.MetalDefineMacro)
		return &domain.Macro{Name: name, Node: el, Document: m}, true
	case *domain.Node:
		if m == nil || m.Type != domain.ElementNode {
			return nil, false
		}
		name, _ := m.Attr(domain.NamespaceMETAL, domain.MetalDefineMacro)
		return &domain.Macro{Name: name, Node: m}, true
	}
	return nil, false
}
