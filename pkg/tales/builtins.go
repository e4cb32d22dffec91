package tales

import (
	"context"

	"github.com/aretw0/zpt/pkg/domain"
)

// Built-in root names, visible through global: and unprefixed paths.
const (
	BuiltinNothing  = "nothing"
	BuiltinDefault  = "default"
	BuiltinHere     = "here"
	BuiltinRepeat   = "repeat"
	BuiltinOptions  = "options"
	BuiltinAttrs    = "attrs"
	BuiltinTemplate = "template"
	BuiltinMacros   = "macros"
)

var builtinNames = []string{
	BuiltinAttrs,
	BuiltinDefault,
	BuiltinHere,
	BuiltinMacros,
	BuiltinNothing,
	BuiltinOptions,
	BuiltinRepeat,
	BuiltinTemplate,
}

func (c *ExpressionContext) builtin(name string) (any, bool) {
	switch name {
	case BuiltinNothing:
		return nil, true
	case BuiltinDefault:
		return AbortActionToken, true
	case BuiltinHere:
		return c.root.model, true
	case BuiltinRepeat:
		return RepeatVariables{ctx: c}, true
	case BuiltinOptions:
		keywords := make(map[string]any, len(c.root.options.Keywords))
		for k, v := range c.root.options.Keywords {
			keywords[k] = v
		}
		return keywords, true
	case BuiltinAttrs:
		return originalAttrs(c.node), true
	case BuiltinTemplate:
		if c.root.template == nil {
			return nil, true
		}
		return c.root.template, true
	case BuiltinMacros:
		if c.root.template == nil {
			return domain.MacroSet{}, true
		}
		v, _, _ := c.root.template.LookupValue(context.Background(), "macros")
		return v, true
	}
	return nil, false
}

// originalAttrs returns the node's non-TAL, non-METAL attributes keyed by qualified name.
func originalAttrs(n *domain.Node) map[string]string {
	attrs := make(map[string]string)
	if n == nil {
		return attrs
	}
	for _, a := range n.Attrs {
		if a.Namespace == domain.NamespaceTAL || a.Namespace == domain.NamespaceMETAL {
			continue
		}
		attrs[a.QualifiedName()] = a.Value
	}
	return attrs
}
