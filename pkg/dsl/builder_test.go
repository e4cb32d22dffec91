package dsl_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/zpt/internal/runtime"
	"github.com/aretw0/zpt/pkg/adapters/markup"
	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/dsl"
	"github.com/aretw0/zpt/pkg/tales"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Render(t *testing.T) {
	item := dsl.Element("li").
		TAL("repeat", "item here/items").
		TAL("content", "item").
		Text("placeholder")

	doc := dsl.Document("list.html",
		dsl.Element("ul").Attr("class", "items").Child(item),
		dsl.TALElement("block").TAL("condition", "here/footer").Comment(" end "),
	)

	engine := runtime.NewEngine(tales.Standard(nil, nil))
	out, err := engine.Render(context.Background(), runtime.Request{
		Template: doc,
		Model:    map[string]any{"items": []string{"a", "b"}, "footer": true},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, markup.NewHTML().Write(context.Background(), out, &buf, domain.RenderOptions{}))
	assert.Equal(t, `<ul class="items"><li>a</li><li>b</li></ul><!-- end -->`, buf.String())
}

func TestBuilder_Macros(t *testing.T) {
	doc := dsl.Document("layout.html",
		dsl.Element("html").METAL("define-macro", "page").At(3).Child(
			dsl.Element("title").METAL("define-slot", "title").Text("Untitled"),
		),
	)

	m, ok := doc.Macro("page")
	require.True(t, ok)
	assert.Equal(t, domain.SourceInfo{Name: "layout.html", Line: 3}, m.Node.Source)
	assert.Equal(t, []string{"page"}, doc.MacroNames())
}

func TestBuilder_Reusable(t *testing.T) {
	b := dsl.Element("p").Text("x")
	first := b.Node()
	first.AppendChild(domain.NewText("mutated"))

	assert.Len(t, b.Node().Children, 1)
}

func TestLibrary(t *testing.T) {
	lib := dsl.NewLibrary(
		dsl.Document("b.html", dsl.Element("b")),
		dsl.Document("a.html", dsl.Element("a")),
	)

	doc, err := lib.Load(context.Background(), "a.html")
	require.NoError(t, err)
	assert.Equal(t, "a", doc.Element().Name)

	_, err = lib.Load(context.Background(), "c.html")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	names, err := lib.Names(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.html", "b.html"}, names)
}
