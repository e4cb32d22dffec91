package markup

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/zpt/pkg/domain"
)

// XML reads and writes well-formed XML templates, including XHTML.
type XML struct{}

// NewXML creates an XML provider.
func NewXML() *XML {
	return &XML{}
}

// Read decodes r. Namespace prefixes are resolved against the document's own
// xmlns declarations, with tal and metal bound by default.
func (x *XML) Read(ctx context.Context, name string, r io.Reader) (*domain.Document, error) {
	d := xml.NewDecoder(r)
	d.Strict = true
	d.Entity = xml.HTMLEntity

	root := domain.NewDocumentNode()
	stack := []*domain.Node{root}
	scopes := []*scope{rootScope()}
	top := func() *domain.Node { return stack[len(stack)-1] }

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, _ := d.InputPos()
		src := domain.SourceInfo{Name: name, Line: line}

		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			if len(stack) > 1 {
				return nil, fmt.Errorf("parse %s: unclosed element <%s>", name, top().QualifiedName())
			}
			return &domain.Document{Name: name, Root: root}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			raw := make([]rawAttr, 0, len(t.Attr))
			for _, a := range t.Attr {
				raw = append(raw, rawAttr{prefix: a.Name.Space, local: a.Name.Local, value: a.Value})
			}
			child, el := scopes[len(scopes)-1].enter(t.Name.Space, t.Name.Local, raw, true)
			el.Source = src
			top().AppendChild(el)
			stack = append(stack, el)
			scopes = append(scopes, child)

		case xml.EndElement:
			qname := t.Name.Local
			if t.Name.Space != "" {
				qname = t.Name.Space + ":" + qname
			}
			if len(stack) == 1 || top().QualifiedName() != qname {
				return nil, fmt.Errorf("parse %s (line %d): unexpected </%s>", name, line, qname)
			}
			stack = stack[:len(stack)-1]
			scopes = scopes[:len(scopes)-1]

		case xml.CharData:
			n := domain.NewText(string(t))
			n.Source = src
			top().AppendChild(n)

		case xml.Comment:
			n := domain.NewComment(string(t))
			n.Source = src
			top().AppendChild(n)

		case xml.ProcInst:
			data := t.Target
			if inst := strings.TrimSpace(string(t.Inst)); inst != "" {
				data += " " + inst
			}
			top().AppendChild(&domain.Node{Type: domain.ProcessingInstructionNode, Data: data, Source: src})

		case xml.Directive:
			top().AppendChild(&domain.Node{Type: domain.DoctypeNode, Data: string(t), Source: src})
		}
	}
}

// Write serializes doc as XML. Elements without children are written self-closed.
func (x *XML) Write(ctx context.Context, doc *domain.Document, w io.Writer, opts domain.RenderOptions) error {
	return write(ctx, doc, w, dialectXML, opts)
}
