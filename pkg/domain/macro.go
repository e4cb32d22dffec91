package domain

// Macro is a named, independently ownable subtree.
type Macro struct {
	Name string
	Node *Node
	// Document is the template the macro came from, if known.
	Document *Document
}

// Clone returns a macro holding a deep copy of the subtree.
func (m *Macro) Clone() *Macro {
	return &Macro{Name: m.Name, Node: m.Node.Clone(), Document: m.Document}
}

// SourceName returns the name of the template that defines the macro.
func (m *Macro) SourceName() string {
	if m.Document != nil {
		return m.Document.Name
	}
	return m.Node.Source.Name
}

// Slot is a slot definition inside a macro or a filler at a use-site.
type Slot struct {
	Name string
	Node *Node
}

// Variable is a named binding handed to pluggable evaluators.
type Variable struct {
	Name  string
	Value any
}
