package domain

import (
	"fmt"
	"strings"
)

// NodeType identifies the kind of a tree node.
type NodeType int

const (
	// DocumentNode is the root of a parsed document. It has no markup of its own.
	DocumentNode NodeType = iota
	// ElementNode is a markup element with a namespaced name and attributes.
	ElementNode
	// TextNode holds character data. Writers escape it.
	TextNode
	// CommentNode holds a markup comment.
	CommentNode
	// RawNode holds pre-rendered markup that writers emit verbatim (the "structure" keyword).
	RawNode
	// DoctypeNode holds a document type declaration.
	DoctypeNode
	// ProcessingInstructionNode holds a processing instruction (including the XML declaration).
	ProcessingInstructionNode
)

func (t NodeType) String() string {
	switch t {
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case RawNode:
		return "raw"
	case DoctypeNode:
		return "doctype"
	case ProcessingInstructionNode:
		return "pi"
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// SourceInfo locates a node in its source template.
type SourceInfo struct {
	Name string `json:"name,omitempty"`
	Line int    `json:"line,omitempty"`
}

func (s SourceInfo) String() string {
	switch {
	case s.Name == "" && s.Line == 0:
		return "<unknown>"
	case s.Line == 0:
		return s.Name
	case s.Name == "":
		return fmt.Sprintf("line %d", s.Line)
	}
	return fmt.Sprintf("%s:%d", s.Name, s.Line)
}

// Attr is a namespaced attribute. Lookups match on Namespace and Name, never on Prefix.
type Attr struct {
	Namespace string
	Prefix    string
	Name      string
	Value     string
}

// QualifiedName returns the attribute name as written in markup.
func (a Attr) QualifiedName() string {
	if a.Prefix == "" {
		return a.Name
	}
	return a.Prefix + ":" + a.Name
}

// Node is a mutable tree element.
// Parent is a non-owning back reference used for traversal only.
type Node struct {
	Type      NodeType
	Namespace string
	Prefix    string
	Name      string
	// Data is the payload of text, comment, raw, doctype and processing instruction nodes.
	Data        string
	Attrs       []Attr
	Children    []*Node
	Parent      *Node
	SelfClosing bool
	Source      SourceInfo
}

// NewDocumentNode creates an empty document root.
func NewDocumentNode() *Node {
	return &Node{Type: DocumentNode}
}

// NewElement creates an element in the default namespace.
func NewElement(name string, attrs ...Attr) *Node {
	return &Node{Type: ElementNode, Name: name, Attrs: attrs}
}

// NewText creates a text node.
func NewText(data string) *Node {
	return &Node{Type: TextNode, Data: data}
}

// NewComment creates a comment node.
func NewComment(data string) *Node {
	return &Node{Type: CommentNode, Data: data}
}

// NewRaw creates a node whose data is written without escaping.
func NewRaw(data string) *Node {
	return &Node{Type: RawNode, Data: data}
}

// QualifiedName returns the element name as written in markup.
func (n *Node) QualifiedName() string {
	if n.Prefix == "" {
		return n.Name
	}
	return n.Prefix + ":" + n.Name
}

// IsElement reports whether n is an element in namespace ns.
func (n *Node) IsElement(ns string) bool {
	return n != nil && n.Type == ElementNode && n.Namespace == ns
}

// Attr returns the value of the attribute identified by namespace and local name.
func (n *Node) Attr(ns, name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Namespace == ns && a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether the attribute is present.
func (n *Node) HasAttr(ns, name string) bool {
	_, ok := n.Attr(ns, name)
	return ok
}

// SetAttr sets an attribute, keeping its position when it already exists.
func (n *Node) SetAttr(a Attr) {
	for i := range n.Attrs {
		if n.Attrs[i].Namespace == a.Namespace && n.Attrs[i].Name == a.Name {
			if a.Prefix == "" {
				a.Prefix = n.Attrs[i].Prefix
			}
			n.Attrs[i] = a
			return
		}
	}
	n.Attrs = append(n.Attrs, a)
}

// RemoveAttr deletes an attribute and reports whether it was present.
func (n *Node) RemoveAttr(ns, name string) bool {
	for i := range n.Attrs {
		if n.Attrs[i].Namespace == ns && n.Attrs[i].Name == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveNamespace strips every attribute in the given namespaces, together with
// the xmlns declarations that bind a prefix to one of them.
func (n *Node) RemoveNamespace(namespaces ...string) {
	drop := func(a Attr) bool {
		for _, ns := range namespaces {
			if a.Namespace == ns {
				return true
			}
			if a.Namespace == NamespaceXMLNS && a.Value == ns {
				return true
			}
		}
		return false
	}
	kept := n.Attrs[:0]
	for _, a := range n.Attrs {
		if !drop(a) {
			kept = append(kept, a)
		}
	}
	n.Attrs = kept
}

// AppendChild adds child as the last child of n, detaching it from any previous parent.
func (n *Node) AppendChild(child *Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// SetChildren replaces all children of n.
func (n *Node) SetChildren(children ...*Node) {
	for _, c := range n.Children {
		c.Parent = nil
	}
	n.Children = nil
	for _, c := range children {
		n.AppendChild(c)
	}
}

// Index returns the position of n among its parent's children, or -1.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// RemoveChild detaches child from n.
func (n *Node) RemoveChild(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return true
		}
	}
	return false
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// ReplaceWith puts replacements where n was and detaches n.
// It is a no-op for a node without a parent.
func (n *Node) ReplaceWith(replacements ...*Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for _, r := range replacements {
		if r.Parent != nil {
			r.Parent.RemoveChild(r)
		}
	}
	// Looked up after detaching, since a replacement may have been a previous sibling.
	idx := n.Index()
	children := make([]*Node, 0, len(parent.Children)+len(replacements))
	children = append(children, parent.Children[:idx]...)
	for _, r := range replacements {
		r.Parent = parent
		children = append(children, r)
	}
	children = append(children, parent.Children[idx+1:]...)
	parent.Children = children
	n.Parent = nil
}

// InsertAfter places siblings directly after n in its parent.
func (n *Node) InsertAfter(siblings ...*Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	idx := n.Index()
	tail := append([]*Node(nil), parent.Children[idx+1:]...)
	parent.Children = parent.Children[:idx+1]
	for _, s := range siblings {
		if s.Parent != nil {
			s.Parent.RemoveChild(s)
		}
		s.Parent = parent
		parent.Children = append(parent.Children, s)
	}
	parent.Children = append(parent.Children, tail...)
}

// Unwrap replaces n with its own children.
func (n *Node) Unwrap() {
	children := n.Children
	n.Children = nil
	n.ReplaceWith(children...)
}

// Clone returns a deep, fully independent copy of n with no parent.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Parent = nil
	if n.Attrs != nil {
		c.Attrs = append([]Attr(nil), n.Attrs...)
	}
	c.Children = nil
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			cc := child.Clone()
			cc.Parent = &c
			c.Children[i] = cc
		}
	}
	return &c
}

// Walk visits n and its descendants in document order.
// Returning false from fn skips the node's descendants.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Descendants returns every descendant of n (not n itself) matching pred, in document order.
func (n *Node) Descendants(pred func(*Node) bool) []*Node {
	var found []*Node
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if pred(d) {
				found = append(found, d)
			}
			return true
		})
	}
	return found
}

// TextContent concatenates the text and raw data under n.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.Walk(func(d *Node) bool {
		if d.Type == TextNode || d.Type == RawNode {
			b.WriteString(d.Data)
		}
		return true
	})
	return b.String()
}

// FirstElement returns the first element child of n.
func (n *Node) FirstElement() *Node {
	for _, c := range n.Children {
		if c.Type == ElementNode {
			return c
		}
	}
	return nil
}
