package zpt_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aretw0/zpt"
	"github.com/aretw0/zpt/pkg/adapters/markup"
	"github.com/aretw0/zpt/pkg/adapters/memory"
	"github.com/aretw0/zpt/pkg/config"
	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/tales"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var site = map[string]string{
	"layout.html": `<html metal:define-macro="page"><title metal:define-slot="title">Untitled</title><body metal:define-slot="body"></body></html>`,
	"page.html":   `<tal:block define="layout load: layout.html"><html metal:use-macro="layout/macros/page"><title metal:fill-slot="title" tal:content="here/title">T</title></html></tal:block>`,
	"list.html":   `<ul><li tal:repeat="item here/items" tal:content="item">x</li></ul>`,
	"broken.html": `<div><p tal:content="a//b">x</p><p tal:frobnicate="1">y</p></div>`,
	"boom.html":   `<div><p tal:repeat="c string:abc">x</p><i>ok</i></div>`,
}

func newEngine(t *testing.T, opts ...zpt.Option) (*zpt.Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore(site)
	eng, err := zpt.New(append([]zpt.Option{zpt.WithStore(store)}, opts...)...)
	require.NoError(t, err)
	return eng, store
}

func TestEngine_Render(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, eng.Render(ctx, "page.html", map[string]any{"title": "Hello"}, &buf))
	assert.Equal(t, `<html><title>Hello</title><body></body></html>`, buf.String())

	buf.Reset()
	require.NoError(t, eng.Render(ctx, "list.html", map[string]any{"items": []string{"a", "b"}}, &buf))
	assert.Equal(t, `<ul><li>a</li><li>b</li></ul>`, buf.String())
}

func TestEngine_RenderFailureWritesNothing(t *testing.T) {
	eng, _ := newEngine(t)

	var buf bytes.Buffer
	err := eng.Render(context.Background(), "broken.html", nil, &buf)
	assert.ErrorIs(t, err, domain.ErrEmptyPathPart)
	assert.Zero(t, buf.Len())

	err = eng.Render(context.Background(), "missing.html", nil, &buf)
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
	assert.Zero(t, buf.Len())
}

func TestEngine_RenderOptions(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	var buf bytes.Buffer
	require.Error(t, eng.Render(ctx, "boom.html", nil, &buf))

	err := eng.Render(ctx, "boom.html", nil, &buf, zpt.WithOptionsFunc(func(o *domain.RenderOptions) {
		o.ErrorMode = domain.ErrorModeMarker
	}))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "<div><!-- "))
	assert.Contains(t, buf.String(), "<i>ok</i>")

	buf.Reset()
	doc, err := eng.Parse(ctx, "inline.html", strings.NewReader(`<p tal:content="greeting">x</p>`))
	require.NoError(t, err)
	require.NoError(t, eng.RenderDocument(ctx, doc, nil, &buf, zpt.WithGlobals(map[string]any{"greeting": "hi"})))
	assert.Equal(t, `<p>hi</p>`, buf.String())
}

func TestEngine_WithEvaluator(t *testing.T) {
	upper := tales.EvaluatorFunc(func(_ context.Context, expr tales.Expression, _ *tales.ExpressionContext) (tales.Result, error) {
		return tales.ValueOf(strings.ToUpper(expr.Text)), nil
	})
	eng, _ := newEngine(t, zpt.WithEvaluator("upper", upper))

	doc, err := eng.Parse(context.Background(), "x.html", strings.NewReader(`<p tal:content="upper:shout">x</p>`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, eng.RenderDocument(context.Background(), doc, nil, &buf))
	assert.Equal(t, `<p>SHOUT</p>`, buf.String())
	assert.Empty(t, eng.CheckDocument(doc), "registered prefixes pass the check")
}

func TestEngine_Check(t *testing.T) {
	eng, _ := newEngine(t)

	diags, err := eng.Check(context.Background(), "broken.html")
	require.NoError(t, err)
	require.Len(t, diags, 2)
	assert.ErrorIs(t, diags[0], domain.ErrEmptyPathPart)
	assert.Equal(t, "tal:frobnicate", diags[1].Statement)

	diags, err = eng.Check(context.Background(), "page.html")
	require.NoError(t, err)
	assert.Empty(t, diags)

	_, err = eng.Check(context.Background(), "missing.html")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestEngine_TemplatesAndInvalidate(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()

	names, err := eng.Templates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"boom.html", "broken.html", "layout.html", "list.html", "page.html"}, names)

	var buf bytes.Buffer
	require.NoError(t, eng.Render(ctx, "list.html", map[string]any{"items": []int{1}}, &buf))
	assert.Equal(t, `<ul><li>1</li></ul>`, buf.String())

	require.NoError(t, store.Put(ctx, "list.html", []byte(`<ol><li tal:repeat="item here/items" tal:content="item">x</li></ol>`)))
	eng.Invalidate("list.html")

	buf.Reset()
	require.NoError(t, eng.Render(ctx, "list.html", map[string]any{"items": []int{1}}, &buf))
	assert.Equal(t, `<ol><li>1</li></ol>`, buf.String())
}

func TestEngine_WithConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feed.xml"),
		[]byte(`<feed xmlns:tal="http://xml.zope.org/namespaces/tal"><title tal:content="options/site">x</title></feed>`), 0o644))

	cfg := config.Default()
	cfg.TemplateDir = dir
	cfg.OmitXMLDeclaration = true
	cfg.Keywords = map[string]any{"site": "Example"}

	eng, err := zpt.New(zpt.WithConfig(cfg))
	require.NoError(t, err)
	assert.Equal(t, domain.ErrorModeFail, eng.Options().ErrorMode)

	var buf bytes.Buffer
	require.NoError(t, eng.Render(context.Background(), "feed.xml", nil, &buf))
	assert.Equal(t, `<feed><title>Example</title></feed>`, strings.TrimSpace(buf.String()))

	names, err := eng.Templates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"feed.xml"}, names)
}

func TestEngine_WithProvider(t *testing.T) {
	store := memory.NewStore(map[string]string{"doc.pt": `<doc xmlns:tal="http://xml.zope.org/namespaces/tal"><v tal:replace="here/v"/></doc>`})
	eng, err := zpt.New(zpt.WithStore(store), zpt.WithProvider(markup.NewXML()),
		zpt.WithOptions(domain.RenderOptions{OmitXMLDeclaration: true}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, eng.Render(context.Background(), "doc.pt", map[string]any{"v": "1 < 2"}, &buf))
	assert.Equal(t, `<doc>1 &lt; 2</doc>`, strings.TrimSpace(buf.String()))
}

func TestEngine_Hooks(t *testing.T) {
	var renders, macros atomic.Int32
	eng, _ := newEngine(t,
		zpt.WithLifecycleHooks(domain.LifecycleHooks{
			OnRenderEnd: func(context.Context, *domain.RenderEvent) { renders.Add(1) },
		}),
		zpt.WithLifecycleHooks(domain.LifecycleHooks{
			OnMacroExpand: func(context.Context, *domain.MacroEvent) { macros.Add(1) },
		}),
	)

	var buf bytes.Buffer
	require.NoError(t, eng.Render(context.Background(), "page.html", map[string]any{"title": "x"}, &buf))
	assert.Equal(t, int32(1), renders.Load())
	assert.Equal(t, int32(1), macros.Load())
}

func TestNew_Errors(t *testing.T) {
	_, err := zpt.New()
	assert.ErrorIs(t, err, zpt.ErrNoLoader)

	_, err = zpt.New(zpt.WithStore(memory.NewStore(nil)), zpt.WithOptions(domain.RenderOptions{ErrorMode: "loud"}))
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Format = "yaml"
	_, err = zpt.New(zpt.WithConfig(cfg))
	assert.Error(t, err)
}
