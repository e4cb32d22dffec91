/*
Package dsl provides a fluent builder for template trees.

It lets hosts and tests construct documents without writing markup:

	doc := dsl.Document("page.html",
		dsl.Element("ul").Child(
			dsl.Element("li").
				TAL("repeat", "item here/items").
				TAL("content", "item"),
		),
	)

Built nodes carry TAL and METAL attributes in their namespaces, exactly as
the markup readers would produce them.
*/
package dsl
