package markup

import (
	"strings"

	"github.com/aretw0/zpt/pkg/domain"
)

// scope is one level of prefix → namespace bindings.
type scope struct {
	parent   *scope
	bindings map[string]string
	// defaultNS applies to unprefixed elements (XML only).
	defaultNS string
}

// rootScope binds the conventional prefixes, so HTML templates work without
// xmlns declarations.
func rootScope() *scope {
	return &scope{bindings: map[string]string{
		domain.PrefixTAL:   domain.NamespaceTAL,
		domain.PrefixMETAL: domain.NamespaceMETAL,
		"xml":              domain.NamespaceXML,
		"xmlns":            domain.NamespaceXMLNS,
	}}
}

func (s *scope) resolve(prefix string) (string, bool) {
	for c := s; c != nil; c = c.parent {
		if ns, ok := c.bindings[prefix]; ok {
			return ns, true
		}
	}
	return "", false
}

// rawAttr is an attribute as tokenized, before namespace resolution.
type rawAttr struct {
	prefix, local, value string
}

func splitName(qname string) (prefix, local string) {
	if p, l, ok := strings.Cut(qname, ":"); ok {
		return p, l
	}
	return "", qname
}

// enter creates the scope for an element and resolves its name and attributes.
func (s *scope) enter(prefix, local string, raw []rawAttr, useDefault bool) (*scope, *domain.Node) {
	child := &scope{parent: s, defaultNS: s.defaultNS}
	for _, a := range raw {
		switch {
		case a.prefix == "xmlns":
			if child.bindings == nil {
				child.bindings = make(map[string]string)
			}
			child.bindings[a.local] = a.value
		case a.prefix == "" && a.local == "xmlns":
			child.defaultNS = a.value
		}
	}

	n := domain.NewElement(local)
	n.Prefix = prefix
	if prefix != "" {
		n.Namespace, _ = child.resolve(prefix)
	} else if useDefault {
		n.Namespace = child.defaultNS
	}

	for _, a := range raw {
		attr := domain.Attr{Prefix: a.prefix, Name: a.local, Value: a.value}
		switch {
		case a.prefix == "" && a.local == "xmlns":
			attr.Namespace = domain.NamespaceXMLNS
		case a.prefix != "":
			attr.Namespace, _ = child.resolve(a.prefix)
		case n.Namespace == domain.NamespaceTAL || n.Namespace == domain.NamespaceMETAL:
			// Unprefixed attributes of TAL and METAL elements belong to that namespace.
			attr.Namespace = n.Namespace
		}
		n.Attrs = append(n.Attrs, attr)
	}
	return child, n
}
