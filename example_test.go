package zpt_test

import (
	"context"
	"log"
	"os"

	"github.com/aretw0/zpt"
	"github.com/aretw0/zpt/pkg/adapters/memory"
	"github.com/aretw0/zpt/pkg/dsl"
)

// ExampleNew_memory renders a template held in an in-memory source store.
func ExampleNew_memory() {
	store := memory.NewStore(map[string]string{
		"list.html": `<ul><li tal:repeat="item here/items" tal:content="string:${repeat/item/number}. ${item}">x</li></ul>`,
	})

	engine, err := zpt.New(zpt.WithStore(store))
	if err != nil {
		log.Fatal(err)
	}

	model := map[string]any{"items": []string{"apples", "pears"}}
	if err := engine.Render(context.Background(), "list.html", model, os.Stdout); err != nil {
		log.Fatal(err)
	}
	// Output: <ul><li>1. apples</li><li>2. pears</li></ul>
}

// ExampleWithLoader_dsl builds a layout and a page in code and fills a slot of the layout.
func ExampleWithLoader_dsl() {
	layout := dsl.Document("layout.html",
		dsl.Element("section").METAL("define-macro", "box").Child(
			dsl.Element("h2").Text("Box"),
			dsl.Element("div").METAL("define-slot", "body").Text("empty"),
		),
	)
	page := dsl.Document("page.html",
		dsl.TALElement("block").TAL("define", "layout load: layout.html").Child(
			dsl.Element("div").METAL("use-macro", "layout/macros/box").Child(
				dsl.Element("b").METAL("fill-slot", "body").TAL("content", "here/message"),
			),
		),
	)

	engine, err := zpt.New(zpt.WithLoader(dsl.NewLibrary(layout, page)))
	if err != nil {
		log.Fatal(err)
	}

	if err := engine.Render(context.Background(), "page.html", map[string]string{"message": "Hello"}, os.Stdout); err != nil {
		log.Fatal(err)
	}
	// Output: <section><h2>Box</h2><b>Hello</b></section>
}
