package wikitext

import (
	"strings"
	"testing"

	"github.com/bcye/structured-wikivoyage-exports/internal/document"
)

func TestParseEmpty(t *testing.T) {
	root := Parse("")
	if root.Type != document.KindRoot {
		t.Fatalf("got type %v", root.Type)
	}
	if len(root.Properties) != 0 {
		t.Errorf("expected no properties, got %v", root.Properties)
	}
	if len(root.Children) != 0 {
		t.Errorf("expected no children, got %d", len(root.Children))
	}
}

func TestParsePlainText(t *testing.T) {
	root := Parse("Just some plain text.")
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(root.Children))
	}
	text := root.Children[0]
	if text.Type != document.KindText {
		t.Fatalf("got type %v", text.Type)
	}
	if text.Properties["markdown"] != "Just some plain text." {
		t.Errorf("got markdown %q", text.Properties["markdown"])
	}
}

func TestParseTemplate(t *testing.T) {
	root := Parse("{{foo|a=1|b=two}}")
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(root.Children))
	}
	tmpl := root.Children[0]
	if tmpl.Type != document.KindTemplate {
		t.Fatalf("got type %v", tmpl.Type)
	}
	if tmpl.Properties["name"] != "foo" {
		t.Errorf("got name %q", tmpl.Properties["name"])
	}
	params, ok := tmpl.Properties["params"].(map[string]string)
	if !ok {
		t.Fatalf("params has wrong type: %T", tmpl.Properties["params"])
	}
	if params["a"] != "1" || params["b"] != "two" {
		t.Errorf("got params %v", params)
	}
}

func TestParseListingTemplate(t *testing.T) {
	root := Parse("{{see|name=Statue|lat=1.23|content=Big statue}}")
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(root.Children))
	}
	see := root.Children[0]
	if see.Type != document.KindSee {
		t.Fatalf("got type %v", see.Type)
	}
	if len(see.Children) != 0 {
		t.Errorf("listing nodes must have no children, got %d", len(see.Children))
	}
	if see.Properties["name"] != "Statue" {
		t.Errorf("got name %q", see.Properties["name"])
	}
	if see.Properties["lat"] != "1.23" {
		t.Errorf("got lat %q", see.Properties["lat"])
	}
	if see.Properties["content"] != "Big statue" {
		t.Errorf("got content %q", see.Properties["content"])
	}
}

func TestParseSectionNesting(t *testing.T) {
	root := Parse("Intro\n== First ==\nHello\n=== Sub ===\nWorld")
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 root children, got %d: %+v", len(root.Children), root.Children)
	}

	intro := root.Children[0]
	if intro.Type != document.KindText || intro.Properties["markdown"] != "Intro" {
		t.Errorf("got intro %+v", intro)
	}

	first := root.Children[1]
	if first.Type != document.KindSection {
		t.Fatalf("got type %v", first.Type)
	}
	if first.Properties["title"] != "First" {
		t.Errorf("got title %q", first.Properties["title"])
	}
	if first.Properties["level"] != 2 {
		t.Errorf("got level %v", first.Properties["level"])
	}
	if len(first.Children) != 2 {
		t.Fatalf("expected 2 children under First, got %d", len(first.Children))
	}

	hello := first.Children[0]
	if hello.Type != document.KindText || hello.Properties["markdown"] != "Hello" {
		t.Errorf("got hello %+v", hello)
	}

	sub := first.Children[1]
	if sub.Type != document.KindSection {
		t.Fatalf("got type %v", sub.Type)
	}
	if sub.Properties["title"] != "Sub" || sub.Properties["level"] != 3 {
		t.Errorf("got sub %+v", sub.Properties)
	}
	if len(sub.Children) != 1 || sub.Children[0].Properties["markdown"] != "World" {
		t.Errorf("got sub children %+v", sub.Children)
	}
}

func TestParseDocumentTemplate(t *testing.T) {
	root := Parse("{{pagebanner|image=Foo.jpg}}")
	if len(root.Children) != 0 {
		t.Fatalf("document templates must not appear as children, got %d", len(root.Children))
	}
	pb, ok := root.Properties["pagebanner"].(map[string]string)
	if !ok {
		t.Fatalf("pagebanner has wrong type: %T", root.Properties["pagebanner"])
	}
	if pb["image"] != "Foo.jpg" {
		t.Errorf("got pagebanner %v", pb)
	}
}

func TestParseInlineTagsAndLinks(t *testing.T) {
	root := Parse("This is '''bold''' and a <b>tag</b> and a [[Paris|City of Light]] and [http://example.com Example].")
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 text child, got %d: %+v", len(root.Children), root.Children)
	}
	markdown := root.Children[0].Properties["markdown"].(string)
	if !strings.Contains(markdown, "**tag**") {
		t.Errorf("expected bold tag conversion in %q", markdown)
	}
	if !strings.Contains(markdown, "[City of Light](Paris)") {
		t.Errorf("expected wikilink conversion in %q", markdown)
	}
	if !strings.Contains(markdown, "[Example](http://example.com)") {
		t.Errorf("expected external link conversion in %q", markdown)
	}
}

func TestParseWikilinkNoDisplayText(t *testing.T) {
	root := Parse("[[Paris]]")
	markdown := root.Children[0].Properties["markdown"].(string)
	if markdown != "[Paris](Paris)" {
		t.Errorf("got %q", markdown)
	}
}

func TestParseExternalLinkNoTitle(t *testing.T) {
	root := Parse("[http://example.com]")
	markdown := root.Children[0].Properties["markdown"].(string)
	if markdown != "http://example.com" {
		t.Errorf("got %q", markdown)
	}
}

func TestParseCommentDiscarded(t *testing.T) {
	root := Parse("Before<!-- hidden -->After")
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 text child, got %d", len(root.Children))
	}
	markdown := root.Children[0].Properties["markdown"].(string)
	if markdown != "BeforeAfter" {
		t.Errorf("got %q", markdown)
	}
}

func TestParseWhitespaceOnlyProducesNoTextNode(t *testing.T) {
	root := Parse("== A ==\n   \n== B ==\ncontent")
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(root.Children), root.Children)
	}
	for _, c := range root.Children {
		if c.Type != document.KindSection {
			t.Fatalf("expected only sections at root, got %v", c.Type)
		}
	}
}

func TestParseSectionLevelInvariant(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"== A ==\ntext",
		"====== deep ======\nx",
		"======= too deep =======\nx",
	}
	for _, in := range inputs {
		root := Parse(in)
		var walk func(n *document.Node)
		walk = func(n *document.Node) {
			if n.Type == document.KindSection {
				level, ok := n.Properties["level"].(int)
				if !ok || level < 2 || level > 6 {
					t.Errorf("input %q: section level out of range: %v", in, n.Properties["level"])
				}
			}
			for _, c := range n.Children {
				walk(c)
			}
		}
		walk(root)
	}
}
