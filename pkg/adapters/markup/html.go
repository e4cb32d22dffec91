package markup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/zpt/pkg/domain"
	"golang.org/x/net/html"
)

// voidElements never have content or an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// rawTextElements hold text that is written without escaping.
var rawTextElements = map[string]bool{
	"script": true, "style": true,
}

// HTML reads and writes HTML templates. Unlike a browser parser it keeps the
// tree as written: no implied html/head/body elements and no reordering.
type HTML struct{}

// NewHTML creates an HTML provider.
func NewHTML() *HTML {
	return &HTML{}
}

// Read tokenizes r and builds a document, recording the line of every element.
func (h *HTML) Read(ctx context.Context, name string, r io.Reader) (*domain.Document, error) {
	z := html.NewTokenizer(r)
	root := domain.NewDocumentNode()
	stack := []*domain.Node{root}
	scopes := []*scope{rootScope()}
	line := 1

	top := func() *domain.Node { return stack[len(stack)-1] }

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tt := z.Next()
		start := line
		line += bytes.Count(z.Raw(), []byte{'\n'})
		src := domain.SourceInfo{Name: name, Line: start}

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return &domain.Document{Name: name, Root: root}, nil
			}
			return nil, fmt.Errorf("parse %s (line %d): %w", name, start, z.Err())

		case html.TextToken:
			raw := string(z.Raw())
			text := string(z.Text())
			t := domain.NewText(text)
			// Entity references the writer would not reproduce are kept as written.
			if textEscaper.Replace(text) != raw {
				t = domain.NewRaw(raw)
			}
			t.Source = src
			top().AppendChild(t)

		case html.CommentToken:
			c := domain.NewComment(string(z.Text()))
			c.Source = src
			top().AppendChild(c)

		case html.DoctypeToken:
			d := &domain.Node{Type: domain.DoctypeNode, Data: string(z.Text()), Source: src}
			top().AppendChild(d)

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			raw := make([]rawAttr, 0, len(tok.Attr))
			for _, a := range tok.Attr {
				p, l := splitName(a.Key)
				raw = append(raw, rawAttr{prefix: p, local: l, value: a.Val})
			}
			prefix, local := splitName(tok.Data)
			child, el := scopes[len(scopes)-1].enter(prefix, local, raw, false)
			el.Source = src
			top().AppendChild(el)

			if tt == html.SelfClosingTagToken {
				el.SelfClosing = true
				continue
			}
			if prefix == "" && voidElements[local] {
				continue
			}
			stack = append(stack, el)
			scopes = append(scopes, child)

		case html.EndTagToken:
			tok := z.Token()
			// Close the nearest open element with this name; stray end tags are dropped.
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].QualifiedName() == tok.Data {
					stack = stack[:i]
					scopes = scopes[:i]
					break
				}
			}
		}
	}
}

// Write serializes doc as HTML.
func (h *HTML) Write(ctx context.Context, doc *domain.Document, w io.Writer, opts domain.RenderOptions) error {
	return write(ctx, doc, w, dialectHTML, opts)
}
