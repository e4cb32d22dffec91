package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/zpt/pkg/domain"
)

// splitStatements splits a multi-part statement on ';'. A doubled ";;" is a literal ';'.
func splitStatements(text string) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != ';' {
			cur.WriteByte(text[i])
			continue
		}
		if i+1 < len(text) && text[i+1] == ';' {
			cur.WriteByte(';')
			i++
			continue
		}
		parts = append(parts, cur.String())
		cur.Reset()
	}
	parts = append(parts, cur.String())

	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

type scope int

const (
	scopeLocal scope = iota
	scopeGlobal
)

type definition struct {
	scope scope
	name  string
	expr  string
}

// parseDefine parses "[local|global] name expression; ...".
func parseDefine(text string) ([]definition, error) {
	var defs []definition
	for _, part := range splitStatements(text) {
		fields := strings.TrimSpace(part)
		d := definition{scope: scopeLocal}
		word, rest := cutWord(fields)
		switch word {
		case "local":
			word, rest = cutWord(rest)
		case "global":
			d.scope = scopeGlobal
			word, rest = cutWord(rest)
		}
		if !isIdentifier(word) || rest == "" {
			return nil, domain.NewStructuralError(text, domain.ErrMalformedStatement, fmt.Sprintf("bad definition %q", fields))
		}
		d.name, d.expr = word, rest
		defs = append(defs, d)
	}
	return defs, nil
}

// parseRepeat parses "name expression".
func parseRepeat(text string) (name, expr string, err error) {
	name, expr = cutWord(strings.TrimSpace(text))
	if !isIdentifier(name) || expr == "" {
		return "", "", domain.NewStructuralError(text, domain.ErrMalformedStatement, "expected 'name expression'")
	}
	return name, expr, nil
}

type attribute struct {
	name string
	expr string
}

// parseAttributes parses "name expression; ...". Names may be qualified.
func parseAttributes(text string) ([]attribute, error) {
	var attrs []attribute
	for _, part := range splitStatements(text) {
		name, expr := cutWord(strings.TrimSpace(part))
		if name == "" || expr == "" || strings.ContainsAny(name, "\"'<>=") {
			return nil, domain.NewStructuralError(text, domain.ErrMalformedStatement, fmt.Sprintf("bad attribute %q", part))
		}
		attrs = append(attrs, attribute{name: name, expr: expr})
	}
	return attrs, nil
}

// parseContent strips an optional "text" or "structure" keyword.
func parseContent(text string) (structure bool, expr string) {
	trimmed := strings.TrimSpace(text)
	word, rest := cutWord(trimmed)
	switch word {
	case "structure":
		return true, rest
	case "text":
		return false, rest
	}
	return false, trimmed
}

func cutWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t\r\n")
	idx := strings.IndexAny(s, " \t\r\n")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return s != ""
}

// setAttribute sets an attribute by its written (possibly prefixed) name.
func setAttribute(n *domain.Node, qname, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].QualifiedName() == qname {
			n.Attrs[i].Value = value
			return
		}
	}
	a := domain.Attr{Name: qname, Value: value}
	if prefix, local, ok := strings.Cut(qname, ":"); ok {
		a.Prefix, a.Name = prefix, local
		if prefix == "xml" {
			a.Namespace = domain.NamespaceXML
		}
	}
	n.Attrs = append(n.Attrs, a)
}

func removeAttribute(n *domain.Node, qname string) {
	for i := range n.Attrs {
		if n.Attrs[i].QualifiedName() == qname {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}
