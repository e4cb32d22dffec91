package dsl

import (
	"github.com/aretw0/zpt/pkg/domain"
)

// NodeBuilder accumulates one node and its children.
type NodeBuilder struct {
	node *domain.Node
}

// Element starts an element without a namespace.
func Element(name string) *NodeBuilder {
	return &NodeBuilder{node: domain.NewElement(name)}
}

// TALElement starts a tal:name element. Such elements never appear in output.
func TALElement(name string) *NodeBuilder {
	n := domain.NewElement(name)
	n.Namespace, n.Prefix = domain.NamespaceTAL, domain.PrefixTAL
	return &NodeBuilder{node: n}
}

// METALElement starts a metal:name element.
func METALElement(name string) *NodeBuilder {
	n := domain.NewElement(name)
	n.Namespace, n.Prefix = domain.NamespaceMETAL, domain.PrefixMETAL
	return &NodeBuilder{node: n}
}

// Attr sets a plain attribute.
func (b *NodeBuilder) Attr(name, value string) *NodeBuilder {
	b.node.SetAttr(domain.Attr{Name: name, Value: value})
	return b
}

// TAL sets a tal: statement, e.g. TAL("content", "here/title").
func (b *NodeBuilder) TAL(statement, expression string) *NodeBuilder {
	b.node.SetAttr(domain.Attr{Namespace: domain.NamespaceTAL, Prefix: domain.PrefixTAL, Name: statement, Value: expression})
	return b
}

// METAL sets a metal: attribute, e.g. METAL("define-macro", "page").
func (b *NodeBuilder) METAL(statement, value string) *NodeBuilder {
	b.node.SetAttr(domain.Attr{Namespace: domain.NamespaceMETAL, Prefix: domain.PrefixMETAL, Name: statement, Value: value})
	return b
}

// Text appends a text child.
func (b *NodeBuilder) Text(data string) *NodeBuilder {
	b.node.AppendChild(domain.NewText(data))
	return b
}

// Raw appends markup that is written verbatim.
func (b *NodeBuilder) Raw(data string) *NodeBuilder {
	b.node.AppendChild(domain.NewRaw(data))
	return b
}

// Comment appends a comment child.
func (b *NodeBuilder) Comment(data string) *NodeBuilder {
	b.node.AppendChild(domain.NewComment(data))
	return b
}

// Child appends copies of the given elements.
func (b *NodeBuilder) Child(children ...*NodeBuilder) *NodeBuilder {
	for _, c := range children {
		b.node.AppendChild(c.Node())
	}
	return b
}

// At records the source line reported in errors.
func (b *NodeBuilder) At(line int) *NodeBuilder {
	b.node.Source.Line = line
	return b
}

// Node returns an independent copy of the built tree, so a builder can be reused.
func (b *NodeBuilder) Node() *domain.Node {
	return b.node.Clone()
}

// Document wraps the built elements in a named document and stamps the name
// on every node's source information.
func Document(name string, roots ...*NodeBuilder) *domain.Document {
	doc := domain.NewDocument(name, nil)
	for _, r := range roots {
		doc.Root.AppendChild(r.Node())
	}
	doc.Root.Walk(func(n *domain.Node) bool {
		n.Source.Name = name
		return true
	})
	return doc
}
