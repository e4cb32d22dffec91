package domain

import (
	"context"
	"sort"
)

// Document is a parsed template.
// Documents held by caches are canonical: renders clone them before mutating anything.
type Document struct {
	Name string
	Root *Node
}

// NewDocument wraps a root node. A non-document root is placed under a fresh document node.
func NewDocument(name string, root *Node) *Document {
	if root != nil && root.Type != DocumentNode {
		doc := NewDocumentNode()
		doc.AppendChild(root)
		root = doc
	}
	if root == nil {
		root = NewDocumentNode()
	}
	return &Document{Name: name, Root: root}
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() *Document {
	return &Document{Name: d.Name, Root: d.Root.Clone()}
}

// Element returns the document element.
func (d *Document) Element() *Node {
	return d.Root.FirstElement()
}

// Macros indexes every metal:define-macro node. The first definition of a name wins.
func (d *Document) Macros() map[string]*Macro {
	macros := make(map[string]*Macro)
	d.Root.Walk(func(n *Node) bool {
		if n.Type != ElementNode {
			return true
		}
		if name, ok := n.Attr(NamespaceMETAL, MetalDefineMacro); ok {
			if _, exists := macros[name]; !exists {
				macros[name] = &Macro{Name: name, Node: n, Document: d}
			}
		}
		return true
	})
	return macros
}

// Macro returns the named macro definition. The returned node is the canonical one.
func (d *Document) Macro(name string) (*Macro, bool) {
	var found *Macro
	d.Root.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Type == ElementNode {
			if v, ok := n.Attr(NamespaceMETAL, MetalDefineMacro); ok && v == name {
				found = &Macro{Name: name, Node: n, Document: d}
				return false
			}
		}
		return true
	})
	return found, found != nil
}

// MacroNames lists defined macro names in sorted order.
func (d *Document) MacroNames() []string {
	macros := d.Macros()
	names := make([]string, 0, len(macros))
	for name := range macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupValue exposes documents to path expressions: "macros", "name" and "source".
func (d *Document) LookupValue(_ context.Context, name string) (any, bool, error) {
	switch name {
	case "macros":
		return MacroSet{doc: d}, true, nil
	case "name", "source":
		return d.Name, true, nil
	}
	return nil, false, nil
}

// MacroSet is the path-traversable view of a document's macros.
type MacroSet struct {
	doc *Document
}

// LookupValue resolves a macro by name.
func (s MacroSet) LookupValue(_ context.Context, name string) (any, bool, error) {
	if s.doc == nil {
		return nil, false, nil
	}
	m, ok := s.doc.Macro(name)
	if !ok {
		return nil, false, nil
	}
	return m, true, nil
}
