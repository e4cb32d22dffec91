package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/zpt/internal/runtime"
	"github.com/aretw0/zpt/pkg/adapters/markup"
	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/tales"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func parse(t *testing.T, name, src string) *domain.Document {
	t.Helper()
	doc, err := markup.NewHTML().Read(context.Background(), name, strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func serialize(t *testing.T, doc *domain.Document) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, markup.NewHTML().Write(context.Background(), doc, &buf, domain.RenderOptions{}))
	return buf.String()
}

func newEngine(opts ...runtime.Option) *runtime.Engine {
	return runtime.NewEngine(tales.Standard(nil, nil), opts...)
}

func render(t *testing.T, src string, model any) string {
	t.Helper()
	out, err := renderErr(t, src, model, domain.RenderOptions{})
	require.NoError(t, err)
	return out
}

func renderErr(t *testing.T, src string, model any, opts domain.RenderOptions) (string, error) {
	t.Helper()
	doc, err := newEngine().Render(context.Background(), runtime.Request{
		Template: parse(t, "test.html", src),
		Model:    model,
		Options:  opts,
	})
	if err != nil {
		assert.Nil(t, doc)
		return "", err
	}
	return serialize(t, doc), nil
}

func TestRender_Statements(t *testing.T) {
	model := map[string]any{
		"title": "A & B",
		"html":  "<b>hi</b>",
		"no":    false,
		"yes":   true,
		"url":   "/u",
		"items": []string{"a", "b"},
		"m":     map[string]int{"b": 2, "a": 1},
	}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"content escapes", `<p tal:content="here/title">x</p>`, `<p>A &amp; B</p>`},
		{"content structure", `<p tal:content="structure html">x</p>`, `<p><b>hi</b></p>`},
		{"replace", `<div><span tal:replace="here/title">x</span></div>`, `<div>A &amp; B</div>`},
		{"replace structure", `<div><span tal:replace="structure here/html">x</span></div>`, `<div><b>hi</b></div>`},
		{"replace nothing", `<div><span tal:replace="nothing">x</span></div>`, `<div></div>`},
		{"content default keeps", `<p tal:content="default">keep</p>`, `<p>keep</p>`},
		{"content missing keeps", `<p tal:content="here/missing">keep</p>`, `<p>keep</p>`},
		{"condition", `<ul><li tal:condition="no">a</li><li tal:condition="not:no">b</li></ul>`, `<ul><li>b</li></ul>`},
		{"condition cancel keeps", `<p tal:condition="default">a</p>`, `<p>a</p>`},
		{"define then condition", `<p tal:define="x yes" tal:condition="x">y</p>`, `<p>y</p>`},
		{"define local scope", `<div><p tal:define="x string:1">a</p><span tal:condition="exists:x">b</span></div>`, `<div><p>a</p></div>`},
		{"define global", `<div><p tal:define="global g string:G">a</p><span tal:content="g">b</span></div>`, `<div><p>a</p><span>G</span></div>`},
		{"define several", `<p tal:define="a string:1; b string:${a}2" tal:content="b">x</p>`, `<p>12</p>`},
		{"repeat", `<ul><li tal:repeat="item items" tal:content="string:${repeat/item/number}:${item}">x</li></ul>`, `<ul><li>1:a</li><li>2:b</li></ul>`},
		{"repeat map in key order", `<ul><li tal:repeat="k m" tal:content="string:${repeat/k/key}=${k}">x</li></ul>`, `<ul><li>a=1</li><li>b=2</li></ul>`},
		{"repeat empty", `<ul><li tal:repeat="k nothing">x</li></ul>`, `<ul></ul>`},
		{"repeat default renders once", `<ul><li tal:repeat="k default">x</li></ul>`, `<ul><li>x</li></ul>`},
		{"repeat nested", `<p tal:repeat="a items"><b tal:repeat="b items" tal:replace="string:${a}${b}"></b></p>`, `<p>aaab</p><p>babb</p>`},
		{"attributes", `<a href="old" tal:attributes="href url; title string:T; class nothing; disabled yes">x</a>`, `<a href="/u" title="T" disabled="disabled">x</a>`},
		{"attributes remove", `<input class="c" checked="checked" tal:attributes="class nothing; checked no">`, `<input>`},
		{"attributes default keeps", `<a href="old" tal:attributes="href default">x</a>`, `<a href="old">x</a>`},
		{"attrs builtin", `<a href="x" tal:attributes="title attrs/href">y</a>`, `<a href="x" title="x">y</a>`},
		{"omit-tag", `<div><span tal:omit-tag="">x</span><b tal:omit-tag="no">y</b><tal:block>z</tal:block></div>`, `<div>x<b>y</b>z</div>`},
		{"tal element with statements", `<div><tal:x repeat="i items" content="i">?</tal:x></div>`, `<div>ab</div>`},
		{"escaped semicolon", `<p tal:attributes="title string:a;;b">x</p>`, `<p title="a;b">x</p>`},
		{"path alternatives", `<p tal:content="options/missing | here/title">x</p>`, `<p>A &amp; B</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.src, model))
		})
	}
}

func TestRender_OnError(t *testing.T) {
	out := render(t, `<div tal:on-error="string:failed: ${error/Type}"><p tal:repeat="c string:abc">x</p></div>`, nil)
	assert.Equal(t, `<div>failed: EvaluationError</div>`, out)

	// The nearest handler wins.
	out = render(t, `<div tal:on-error="string:outer"><p tal:on-error="error/Statement"><b tal:repeat="c string:abc">x</b></p></div>`, nil)
	assert.Equal(t, `<div><p>tal:repeat</p></div>`, out)

	// A failing handler propagates to the next one up.
	out = render(t, `<div tal:on-error="string:outer"><p tal:on-error="structure nothing/x | here/boom/x"><b tal:repeat="c string:abc">x</b></p></div>`, map[string]any{"boom": failing{}})
	assert.Equal(t, `<div>outer</div>`, out)
}

func TestRender_ErrorMarker(t *testing.T) {
	src := `<div><p tal:repeat="c string:abc">x</p><i>ok</i></div>`

	out, err := renderErr(t, src, nil, domain.RenderOptions{ErrorMode: domain.ErrorModeMarker})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<div><!-- "), out)
	assert.Contains(t, out, "tal:repeat")
	assert.Contains(t, out, "<i>ok</i>")
	assert.NotContains(t, out, "<p")

	_, err = renderErr(t, src, nil, domain.RenderOptions{})
	require.Error(t, err)
	var rerr *domain.RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "tal:repeat", rerr.Statement)
	assert.Equal(t, "string:abc", rerr.Expression)
	assert.Equal(t, domain.SourceInfo{Name: "test.html", Line: 1}, rerr.Source)
	assert.True(t, domain.IsRecoverable(err))
}

func TestRender_FatalErrors(t *testing.T) {
	marker := domain.RenderOptions{ErrorMode: domain.ErrorModeMarker}
	tests := []struct {
		name string
		src  string
		is   error
	}{
		{"unknown prefix", `<p tal:content="bogus:x">x</p>`, domain.ErrUnknownPrefix},
		{"content and replace", `<p tal:content="a" tal:replace="b">x</p>`, domain.ErrMalformedStatement},
		{"malformed define", `<p tal:define="1x y">x</p>`, domain.ErrMalformedStatement},
		{"malformed repeat", `<p tal:repeat="items">x</p>`, domain.ErrMalformedStatement},
		{"empty path part", `<p tal:content="a//b">x</p>`, domain.ErrEmptyPathPart},
		{"use and extend macro", `<div><div metal:define-macro="m">M</div><p metal:use-macro="template/macros/m" metal:extend-macro="template/macros/m">x</p></div>`, domain.ErrMalformedStatement},
		{"recursive macro", `<div metal:define-macro="m"><p metal:use-macro="template/macros/m"></p></div>`, domain.ErrMacroDepth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := renderErr(t, tt.src, nil, marker)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			assert.False(t, domain.IsRecoverable(err))
		})
	}

	t.Run("missing macro", func(t *testing.T) {
		_, err := renderErr(t, `<div tal:on-error="string:x"><p metal:use-macro="template/macros/nope"></p></div>`, nil, marker)
		var notFound *domain.MacroNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "template/macros/nope", notFound.Expression)
	})
}

func TestRender_Macros(t *testing.T) {
	src := `<html><div metal:define-macro="box"><h1 metal:define-slot="title">Default</h1><p>body</p></div>` +
		`<section metal:use-macro="template/macros/box"><h1 metal:fill-slot="title">Custom</h1></section>` +
		`<section metal:use-macro="template/macros/box">no fills</section></html>`
	out := render(t, src, nil)
	assert.Equal(t, `<html><div><h1>Default</h1><p>body</p></div><div><h1>Custom</h1><p>body</p></div><div><h1>Default</h1><p>body</p></div></html>`, out)
}

func TestRender_MacroSeesUseSiteScope(t *testing.T) {
	src := `<html><p metal:define-macro="greet" tal:content="string:hello ${who}">x</p>` +
		`<div tal:define="who string:world"><span metal:use-macro="template/macros/greet"></span></div></html>`
	// Rendered in place the placeholder is undefined, so the content is kept.
	assert.Equal(t, `<html><p>x</p><div><p>hello world</p></div></html>`, render(t, src, nil))
}

func TestRender_ExtendMacro(t *testing.T) {
	base := parse(t, "base.html", `<html metal:define-macro="page"><title metal:define-slot="title">Base</title><body metal:define-slot="body">base body</body></html>`)
	section := parse(t, "section.html", `<html metal:define-macro="section" metal:extend-macro="base/macros/page"><body metal:fill-slot="body">section <i metal:define-slot="extra">e</i></body></html>`)
	page := parse(t, "page.html", `<html metal:use-macro="section/macros/section"><title metal:fill-slot="title">Page</title><i metal:fill-slot="extra">x</i></html>`)

	var expanded []*domain.MacroEvent
	engine := newEngine(runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnMacroExpand: func(_ context.Context, e *domain.MacroEvent) { expanded = append(expanded, e) },
	}))
	doc, err := engine.Render(context.Background(), runtime.Request{
		Template: page,
		Globals:  map[string]any{"base": base, "section": section},
	})
	require.NoError(t, err)
	assert.Equal(t, `<html><title>Page</title><body>section <i>x</i></body></html>`, serialize(t, doc))

	require.Len(t, expanded, 1)
	assert.Equal(t, "section", expanded[0].Macro)
	assert.Equal(t, "page.html", expanded[0].Template)
	assert.True(t, expanded[0].Extended)
	assert.Equal(t, "section.html", expanded[0].Source.Name)
}

func TestRender_ExtendChain(t *testing.T) {
	globals := map[string]any{
		"a": parse(t, "a.html", `<div metal:define-macro="a"><i metal:define-slot="x">A x</i><i metal:define-slot="y">A y</i></div>`),
		"b": parse(t, "b.html", `<div metal:define-macro="b" metal:extend-macro="a/macros/a"><i metal:fill-slot="x">B x</i><i metal:fill-slot="y">B y</i></div>`),
		"c": parse(t, "c.html", `<div metal:define-macro="c" metal:extend-macro="b/macros/b"><i metal:fill-slot="y">C y</i></div>`),
	}
	doc, err := newEngine().Render(context.Background(), runtime.Request{
		Template: parse(t, "page.html", `<div metal:use-macro="c/macros/c"></div>`),
		Globals:  globals,
	})
	require.NoError(t, err)
	assert.Equal(t, `<div><i>B x</i><i>C y</i></div>`, serialize(t, doc))
}

func TestRender_NestedUseMacroKeepsItsFills(t *testing.T) {
	src := `<html><div metal:define-macro="outer"><h1 metal:define-slot="title">Outer default</h1><main metal:define-slot="body">ob</main></div>` +
		`<div metal:define-macro="inner"><b metal:define-slot="title">inner default</b></div>` +
		`<section metal:use-macro="template/macros/outer"><main metal:fill-slot="body">` +
		`<span metal:use-macro="template/macros/inner"><b metal:fill-slot="title">INNER FILL</b></span>` +
		`</main></section></html>`
	assert.Equal(t,
		`<html><div><h1>Outer default</h1><main>ob</main></div><div><b>inner default</b></div>`+
			`<div><h1>Outer default</h1><main><div><b>INNER FILL</b></div></main></div></html>`,
		render(t, src, nil))
}

func TestRender_SourceAnnotations(t *testing.T) {
	src := `<div><p metal:define-macro="box">b</p><span metal:use-macro="template/macros/box"></span></div>`
	out, err := renderErr(t, src, nil, domain.RenderOptions{IncludeSourceAnnotations: true})
	require.NoError(t, err)
	assert.Equal(t, `<div><p>b</p><!-- begin macro "box" from test.html:1 --><p>b</p><!-- end macro "box" --></div>`, out)
}

func TestRender_Hooks(t *testing.T) {
	var starts, ends, errs atomic.Int32
	var lastErr *domain.ErrorEvent
	engine := newEngine(runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnRenderStart: func(context.Context, *domain.RenderEvent) { starts.Add(1) },
		OnRenderEnd: func(_ context.Context, e *domain.RenderEvent) {
			ends.Add(1)
			assert.NoError(t, e.Err)
		},
		OnEvaluationError: func(_ context.Context, e *domain.ErrorEvent) {
			errs.Add(1)
			lastErr = e
		},
	}))

	_, err := engine.Render(context.Background(), runtime.Request{
		Template: parse(t, "hooks.html", `<div><p tal:repeat="c string:abc">x</p></div>`),
		Options:  domain.RenderOptions{ErrorMode: domain.ErrorModeMarker},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, starts.Load())
	assert.EqualValues(t, 1, ends.Load())
	assert.EqualValues(t, 1, errs.Load())
	require.NotNil(t, lastErr)
	assert.True(t, lastErr.Recovered)
	assert.Equal(t, "tal:repeat", lastErr.Statement)
	assert.Equal(t, "hooks.html", lastErr.Template)
}

func TestRender_TemplateIsNotModified(t *testing.T) {
	src := `<ul><li tal:repeat="i items" tal:content="i">x</li></ul>`
	tmpl := parse(t, "test.html", src)
	engine := newEngine()

	for _, items := range [][]string{{"a"}, {"b", "c"}} {
		doc, err := engine.Render(context.Background(), runtime.Request{Template: tmpl, Model: map[string]any{"items": items}})
		require.NoError(t, err)
		assert.Equal(t, "<ul>"+liList(items)+"</ul>", serialize(t, doc))
	}
	assert.Equal(t, src, serialize(t, tmpl))
}

func liList(items []string) string {
	var b strings.Builder
	for _, i := range items {
		b.WriteString("<li>" + i + "</li>")
	}
	return b.String()
}

func TestRender_Deterministic(t *testing.T) {
	src := `<dl><tal:r repeat="k m"><dt tal:content="repeat/k/key">k</dt><dd tal:content="k">v</dd></tal:r></dl>`
	model := map[string]any{"m": map[string]any{"z": 1, "a": 2, "m": 3, "q": 4}}
	first := render(t, src, model)
	for n := 0; n < 10; n++ {
		assert.Equal(t, first, render(t, src, model))
	}
	assert.Equal(t, `<dl><dt>a</dt><dd>2</dd><dt>m</dt><dd>3</dd><dt>q</dt><dd>4</dd><dt>z</dt><dd>1</dd></dl>`, first)
}

func TestRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc, err := newEngine().Render(ctx, runtime.Request{Template: parse(t, "test.html", `<p tal:content="string:x">y</p>`)})
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRender_RepeatOverOpenChannel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	doc, err := newEngine().Render(ctx, runtime.Request{
		Template: parse(t, "test.html", `<p tal:repeat="i ch">x</p>`),
		Model:    map[string]any{"ch": make(chan int)},
	})
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRender_InvalidOptions(t *testing.T) {
	_, err := renderErr(t, `<p>x</p>`, nil, domain.RenderOptions{ErrorMode: "loud"})
	assert.Error(t, err)

	_, err = newEngine().Render(context.Background(), runtime.Request{})
	assert.Error(t, err)
}

func TestRender_ConcurrentIsolation(t *testing.T) {
	tmpl := parse(t, "test.html", `<p tal:define="global n here/n" tal:content="string:${n}">x</p>`)
	engine := newEngine()

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		i := i
		g.Go(func() error {
			doc, err := engine.Render(context.Background(), runtime.Request{Template: tmpl, Model: map[string]any{"n": i}})
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := markup.NewHTML().Write(context.Background(), doc, &buf, domain.RenderOptions{}); err != nil {
				return err
			}
			if want := fmt.Sprintf("<p>%d</p>", i); buf.String() != want {
				return fmt.Errorf("render %d: got %s, want %s", i, buf.String(), want)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

// failing is a host object whose every lookup fails.
type failing struct{}

func (failing) LookupValue(context.Context, string) (any, bool, error) {
	return nil, false, errors.New("kaboom")
}

func TestRender_ConcurrentMacroFills(t *testing.T) {
	layoutSrc := `<section metal:define-macro="box"><h2>Box</h2><div metal:define-slot="body">empty</div></section>`
	layout := parse(t, "layout.html", layoutSrc)
	pages := make([]*domain.Document, 20)
	for i := range pages {
		pages[i] = parse(t, fmt.Sprintf("page%d.html", i),
			fmt.Sprintf(`<div metal:use-macro="layout/macros/box"><b metal:fill-slot="body">fill %d</b></div>`, i))
	}
	engine := newEngine()

	var g errgroup.Group
	for i, page := range pages {
		i, page := i, page
		g.Go(func() error {
			doc, err := engine.Render(context.Background(), runtime.Request{
				Template: page,
				Globals:  map[string]any{"layout": layout},
			})
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := markup.NewHTML().Write(context.Background(), doc, &buf, domain.RenderOptions{}); err != nil {
				return err
			}
			if want := fmt.Sprintf("<section><h2>Box</h2><b>fill %d</b></section>", i); buf.String() != want {
				return fmt.Errorf("render %d: got %s, want %s", i, buf.String(), want)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var buf bytes.Buffer
	require.NoError(t, markup.NewHTML().Write(context.Background(), layout, &buf, domain.RenderOptions{}))
	assert.Equal(t, layoutSrc, buf.String())
}
