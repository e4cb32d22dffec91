/*
Package zpt is a page template engine implementing TAL, TALES and METAL.

Templates are well-formed HTML or XML documents whose behaviour lives in
namespaced attributes. TAL statements (tal:define, tal:condition, tal:repeat,
tal:content, tal:replace, tal:attributes, tal:omit-tag, tal:on-error) are
applied element by element. TALES expressions ("here/title", "string:Hi ${name}",
"not: exists: here/hidden") provide their values. METAL macros let one
template reuse, fill and extend parts of another.

# Architecture

The engine is layered the same way at every level: a domain model
(pkg/domain), driven ports (pkg/ports) and swappable adapters.

  - pkg/tales: expression dispatcher, path evaluator and built-in prefixes.
  - pkg/resolve: the value resolver chain used to walk into host objects.
  - pkg/metal: macro lookup, extension and slot filling.
  - pkg/adapters/markup: HTML and XML readers and writers.
  - pkg/adapters/{memory,file,redis}: template source stores.
  - pkg/loader: a parsing cache in front of a source store.

# Usage

	eng, err := zpt.New(zpt.WithStore(file.New("./templates")))
	if err != nil {
		log.Fatal(err)
	}

	model := map[string]any{"title": "Hello", "items": []string{"a", "b"}}
	if err := eng.Render(ctx, "page.html", model, os.Stdout); err != nil {
		log.Fatal(err)
	}

A render never modifies the cached template: each render expands a private
copy, and output is written only when the whole render succeeded.
*/
package zpt
