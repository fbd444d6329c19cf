// Package wikitext converts Wikivoyage wikitext into the document tree
// defined by package document: a tokenizer (lexer.go), a tree builder
// (this file), and the inline tag/link-to-markdown rules (markdown.go).
package wikitext

import (
	"strings"

	"github.com/bcye/structured-wikivoyage-exports/internal/document"
)

type sectionEntry struct {
	node  *document.Node
	level int
}

// Parse converts wikitext into a document tree. It is a pure function:
// no I/O, deterministic, identical output for identical input.
func Parse(wikitext string) *document.Node {
	root := document.NewRoot()
	tokens := Tokenize(wikitext)

	var sections []sectionEntry
	current := root
	var pending strings.Builder

	flush := func() {
		text := strings.TrimSpace(pending.String())
		pending.Reset()
		if text == "" {
			return
		}
		node := document.NewNode(document.KindText)
		node.Properties["markdown"] = text
		current.Children = append(current.Children, node)
	}

	for _, tok := range tokens {
		switch tok.Kind {
		case TokenHeading:
			flush()
			level := tok.Level
			if level < 2 {
				level = 2
			}
			if level > 6 {
				level = 6
			}
			section := document.NewNode(document.KindSection)
			section.Properties["title"] = strings.TrimSpace(tok.Title)
			section.Properties["level"] = level

			parent := root
			for i := len(sections) - 1; i >= 0; i-- {
				if sections[i].level < level {
					parent = sections[i].node
					break
				}
			}
			parent.Children = append(parent.Children, section)
			sections = append(sections, sectionEntry{node: section, level: level})
			current = section

		case TokenTemplate:
			flush()
			name := strings.ToLower(strings.TrimSpace(tok.Name))
			switch {
			case document.DocumentTemplates[name]:
				params := map[string]string{}
				for _, p := range tok.Params {
					params[p.Name] = strings.TrimSpace(p.Value)
				}
				root.Properties[name] = params

			case document.ListingKinds[name] != "":
				kind := document.ListingKinds[name]
				node := document.NewNode(kind)
				for _, p := range tok.Params {
					if p.Name == "content" {
						node.Properties["content"] = strings.TrimSpace(inlineMarkdown(Tokenize(p.Value)))
					} else {
						node.Properties[p.Name] = strings.TrimSpace(p.Value)
					}
				}
				current.Children = append(current.Children, node)

			default:
				node := document.NewNode(document.KindTemplate)
				node.Properties["name"] = name
				params := map[string]string{}
				for _, p := range tok.Params {
					params[p.Name] = strings.TrimSpace(p.Value)
				}
				node.Properties["params"] = params
				current.Children = append(current.Children, node)
			}

		case TokenText:
			pending.WriteString(tok.Text)

		case TokenTag, TokenWikilink, TokenExternalLink:
			pending.WriteString(inlineMarkdownOne(tok))

		case TokenComment:
			// discarded

		default:
			pending.WriteString(tok.Text)
		}
	}
	flush()
	return root
}
