package runtime

import (
	"strings"

	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/tales"
)

// Check validates the statement grammar of doc without rendering it:
// multi-part statements, expression prefixes, path syntax and conflicting
// statements. Nothing is evaluated, so host errors and missing macros are
// not reported.
func Check(doc *domain.Document, dispatcher *tales.Dispatcher) []*domain.RenderError {
	c := &checker{dispatcher: dispatcher}
	doc.Root.Walk(func(n *domain.Node) bool {
		if n.Type == domain.ElementNode {
			c.element(n)
		}
		return true
	})
	return c.diags
}

type checker struct {
	dispatcher *tales.Dispatcher
	diags      []*domain.RenderError
}

func (c *checker) report(n *domain.Node, statement, expr string, err error) {
	c.diags = append(c.diags, &domain.RenderError{Source: n.Source, Statement: statement, Expression: expr, Err: err})
}

func (c *checker) element(n *domain.Node) {
	for _, a := range n.Attrs {
		switch a.Namespace {
		case domain.NamespaceTAL:
			c.tal(n, a)
		case domain.NamespaceMETAL:
			c.metal(n, a)
		}
	}
	if n.HasAttr(domain.NamespaceTAL, domain.TalContent) && n.HasAttr(domain.NamespaceTAL, domain.TalReplace) {
		c.report(n, "tal:"+domain.TalContent, "", domain.NewStructuralError("", domain.ErrMalformedStatement, "tal:content and tal:replace on the same element"))
	}
	if n.HasAttr(domain.NamespaceMETAL, domain.MetalUseMacro) && n.HasAttr(domain.NamespaceMETAL, domain.MetalExtendMacro) {
		c.report(n, "metal:"+domain.MetalUseMacro, "", domain.NewStructuralError("", domain.ErrMalformedStatement, "metal:use-macro and metal:extend-macro on the same element"))
	}
}

func (c *checker) tal(n *domain.Node, a domain.Attr) {
	statement := "tal:" + a.Name
	switch a.Name {
	case domain.TalDefine:
		defs, err := parseDefine(a.Value)
		if err != nil {
			c.report(n, statement, a.Value, err)
			return
		}
		for _, d := range defs {
			c.expression(n, statement, d.expr)
		}
	case domain.TalRepeat:
		_, expr, err := parseRepeat(a.Value)
		if err != nil {
			c.report(n, statement, a.Value, err)
			return
		}
		c.expression(n, statement, expr)
	case domain.TalAttributes:
		attrs, err := parseAttributes(a.Value)
		if err != nil {
			c.report(n, statement, a.Value, err)
			return
		}
		for _, at := range attrs {
			c.expression(n, statement, at.expr)
		}
	case domain.TalContent, domain.TalReplace, domain.TalOnError:
		_, expr := parseContent(a.Value)
		c.expression(n, statement, expr)
	case domain.TalCondition:
		c.expression(n, statement, a.Value)
	case domain.TalOmitTag:
		if strings.TrimSpace(a.Value) != "" {
			c.expression(n, statement, a.Value)
		}
	default:
		c.report(n, statement, a.Value, domain.NewStructuralError(a.Value, domain.ErrMalformedStatement, "unknown TAL attribute "+statement))
	}
}

func (c *checker) metal(n *domain.Node, a domain.Attr) {
	statement := "metal:" + a.Name
	switch a.Name {
	case domain.MetalUseMacro, domain.MetalExtendMacro:
		c.expression(n, statement, a.Value)
	case domain.MetalDefineMacro, domain.MetalDefineSlot, domain.MetalFillSlot:
		if !isIdentifier(strings.TrimSpace(a.Value)) {
			c.report(n, statement, a.Value, domain.NewStructuralError(a.Value, domain.ErrMalformedStatement, "expected a name"))
		}
	default:
		c.report(n, statement, a.Value, domain.NewStructuralError(a.Value, domain.ErrMalformedStatement, "unknown METAL attribute "+statement))
	}
}

// expression checks the prefix of text and, for path-like prefixes, its path syntax.
func (c *checker) expression(n *domain.Node, statement, text string) {
	expr, err := c.dispatcher.Parse(text, nil)
	if err != nil {
		c.report(n, statement, text, err)
		return
	}
	switch expr.Prefix {
	case tales.PrefixPath, tales.PrefixLocal, tales.PrefixGlobal:
		if _, err := tales.ParsePath(expr.Text); err != nil {
			c.report(n, statement, text, err)
		}
	case tales.PrefixNot, tales.PrefixExists:
		c.expression(n, statement, expr.Text)
	}
}
