package tales

import (
	"sort"

	"github.com/aretw0/zpt/pkg/domain"
)

// rootScope is shared by every context of one render.
// The globals table is the only state mutated after construction (tal:define="global ...").
type rootScope struct {
	model    any
	globals  map[string]any
	options  domain.RenderOptions
	template *domain.Document
}

// ExpressionContext is the per-node scope. Contexts are immutable once built;
// deriving methods return new values that share the parent chain.
type ExpressionContext struct {
	node   *domain.Node
	parent *ExpressionContext
	locals map[string]any
	repeat map[string]*RepeatState
	root   *rootScope
}

// RootConfig seeds the root context of a render.
type RootConfig struct {
	Template *domain.Document
	Options  domain.RenderOptions
	// Globals are root-level bindings visible to global: and default path lookups.
	Globals map[string]any
}

// NewRootContext creates the scope for a render of model.
func NewRootContext(model any, cfg RootConfig) *ExpressionContext {
	globals := make(map[string]any, len(cfg.Globals))
	for k, v := range cfg.Globals {
		globals[k] = v
	}
	var node *domain.Node
	if cfg.Template != nil {
		node = cfg.Template.Root
	}
	return &ExpressionContext{
		node: node,
		root: &rootScope{
			model:    model,
			globals:  globals,
			options:  cfg.Options,
			template: cfg.Template,
		},
	}
}

// Child creates the scope for a node nested under c.
func (c *ExpressionContext) Child(node *domain.Node) *ExpressionContext {
	return &ExpressionContext{node: node, parent: c, root: c.root}
}

// WithLocals returns a copy of c with additional local bindings.
func (c *ExpressionContext) WithLocals(vars map[string]any) *ExpressionContext {
	next := c.shallowCopy()
	next.locals = make(map[string]any, len(c.locals)+len(vars))
	for k, v := range c.locals {
		next.locals[k] = v
	}
	for k, v := range vars {
		next.locals[k] = v
	}
	return next
}

// WithLocal is WithLocals for a single binding.
func (c *ExpressionContext) WithLocal(name string, value any) *ExpressionContext {
	return c.WithLocals(map[string]any{name: value})
}

// WithRepeat binds a repeat item and its state.
func (c *ExpressionContext) WithRepeat(name string, item any, state *RepeatState) *ExpressionContext {
	next := c.WithLocal(name, item)
	next.repeat = make(map[string]*RepeatState, len(c.repeat)+1)
	for k, v := range c.repeat {
		next.repeat[k] = v
	}
	next.repeat[name] = state
	return next
}

// WithNode returns a copy of c bound to another node (used for repeat clones).
func (c *ExpressionContext) WithNode(node *domain.Node) *ExpressionContext {
	next := c.shallowCopy()
	next.node = node
	return next
}

// WithTemplate returns a copy of c whose template and macros built-ins refer to doc.
// Global bindings stay shared with c.
func (c *ExpressionContext) WithTemplate(doc *domain.Document) *ExpressionContext {
	next := c.shallowCopy()
	root := *c.root
	root.template = doc
	next.root = &root
	return next
}

func (c *ExpressionContext) shallowCopy() *ExpressionContext {
	cp := *c
	return &cp
}

// DefineGlobal sets a render-wide binding.
func (c *ExpressionContext) DefineGlobal(name string, value any) {
	c.root.globals[name] = value
}

// Node returns the node this scope belongs to.
func (c *ExpressionContext) Node() *domain.Node { return c.node }

// Parent returns the enclosing scope, nil for the root.
func (c *ExpressionContext) Parent() *ExpressionContext { return c.parent }

// Model returns the host model object.
func (c *ExpressionContext) Model() any { return c.root.model }

// Options returns the render options.
func (c *ExpressionContext) Options() domain.RenderOptions { return c.root.options }

// Template returns the document being rendered.
func (c *ExpressionContext) Template() *domain.Document { return c.root.template }

// LookupLocal searches local bindings from the nearest scope outwards.
func (c *ExpressionContext) LookupLocal(name string) (any, bool) {
	for s := c; s != nil; s = s.parent {
		if v, ok := s.locals[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// LookupGlobal searches root-level bindings, then the built-in names.
func (c *ExpressionContext) LookupGlobal(name string) (any, bool) {
	if v, ok := c.root.globals[name]; ok {
		return v, true
	}
	return c.builtin(name)
}

// Repeat returns the nearest repeat state registered under name.
func (c *ExpressionContext) Repeat(name string) (*RepeatState, bool) {
	for s := c; s != nil; s = s.parent {
		if st, ok := s.repeat[name]; ok {
			return st, true
		}
	}
	return nil, false
}

// Variables flattens every visible binding, nearest first, sorted by name.
// It is the view handed to pluggable scripting evaluators.
func (c *ExpressionContext) Variables() []domain.Variable {
	seen := make(map[string]any)
	for s := c; s != nil; s = s.parent {
		for k, v := range s.locals {
			if _, ok := seen[k]; !ok {
				seen[k] = v
			}
		}
	}
	for k, v := range c.root.globals {
		if _, ok := seen[k]; !ok {
			seen[k] = v
		}
	}
	for _, k := range builtinNames {
		if _, ok := seen[k]; !ok {
			v, _ := c.builtin(k)
			seen[k] = v
		}
	}
	vars := make([]domain.Variable, 0, len(seen))
	for k, v := range seen {
		vars = append(vars, domain.Variable{Name: k, Value: v})
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars
}
