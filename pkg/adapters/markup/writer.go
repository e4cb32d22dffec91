package markup

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/aretw0/zpt/pkg/domain"
)

type dialect int

const (
	dialectHTML dialect = iota
	dialectXML
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

type writer struct {
	*bufio.Writer
	dialect dialect
	opts    domain.RenderOptions
}

func write(ctx context.Context, doc *domain.Document, w io.Writer, d dialect, opts domain.RenderOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bw := &writer{Writer: bufio.NewWriter(w), dialect: d, opts: opts}
	bw.node(doc.Root)
	return bw.Flush()
}

func (w *writer) node(n *domain.Node) {
	switch n.Type {
	case domain.DocumentNode:
		w.children(n)
	case domain.ElementNode:
		w.element(n)
	case domain.TextNode:
		if w.dialect == dialectHTML && n.Parent != nil && n.Parent.Prefix == "" && rawTextElements[n.Parent.Name] {
			w.WriteString(n.Data)
			return
		}
		textEscaper.WriteString(w, n.Data)
	case domain.RawNode:
		w.WriteString(n.Data)
	case domain.CommentNode:
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->")
	case domain.DoctypeNode:
		if w.dialect == dialectHTML {
			w.WriteString("<!DOCTYPE ")
		} else {
			w.WriteString("<!")
		}
		w.WriteString(n.Data)
		w.WriteString(">")
	case domain.ProcessingInstructionNode:
		if w.opts.OmitXMLDeclaration && (n.Data == "xml" || strings.HasPrefix(n.Data, "xml ")) {
			return
		}
		w.WriteString("<?")
		w.WriteString(n.Data)
		w.WriteString("?>")
	}
}

func (w *writer) children(n *domain.Node) {
	for _, c := range n.Children {
		w.node(c)
	}
}

func (w *writer) element(n *domain.Node) {
	qname := n.QualifiedName()
	w.WriteByte('<')
	w.WriteString(qname)
	for _, a := range n.Attrs {
		w.WriteByte(' ')
		w.WriteString(a.QualifiedName())
		w.WriteString(`="`)
		attrEscaper.WriteString(w, a.Value)
		w.WriteByte('"')
	}

	switch {
	case w.dialect == dialectHTML && n.Prefix == "" && voidElements[n.Name]:
		w.WriteByte('>')
		return
	case len(n.Children) == 0 && (w.dialect == dialectXML || n.SelfClosing):
		w.WriteString(" />")
		return
	}

	w.WriteByte('>')
	w.children(n)
	w.WriteString("</")
	w.WriteString(qname)
	w.WriteByte('>')
}
