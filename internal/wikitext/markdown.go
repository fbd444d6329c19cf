package wikitext

import (
	"fmt"
	"strings"
)

// inlineMarkdown converts a single tag/wikilink/externallink/text token
// stream fragment into its markdown rendering, following spec.md §4.2's
// inline markdown conversion rules. Text tokens contribute their text
// unchanged; comments, templates and headings contribute nothing.
func inlineMarkdown(tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteString(inlineMarkdownOne(tok))
	}
	return b.String()
}

func inlineMarkdownOne(tok Token) string {
	switch tok.Kind {
	case TokenText, TokenOther:
		return tok.Text
	case TokenComment:
		return ""
	case TokenWikilink:
		if tok.HasLinkText {
			return fmt.Sprintf("[%s](%s)", tok.LinkText, tok.LinkTitle)
		}
		return fmt.Sprintf("[%s](%s)", tok.LinkTitle, tok.LinkTitle)
	case TokenExternalLink:
		if tok.HasExtTitle {
			return fmt.Sprintf("[%s](%s)", tok.ExtTitle, tok.ExtURL)
		}
		return tok.ExtURL
	case TokenTag:
		return inlineTag(tok)
	case TokenTemplate, TokenHeading:
		// Headings and templates nested inside an inline fragment (a
		// listing's content parameter or a tag body) are dropped.
		return ""
	default:
		return ""
	}
}

func inlineTag(tok Token) string {
	inner := inlineMarkdown(tok.Inner)
	switch tok.Tag {
	case "b", "strong":
		return "**" + inner + "**"
	case "i", "em":
		return "*" + inner + "*"
	case "u":
		return "_" + inner + "_"
	case "s", "strike", "del":
		return "~~" + inner + "~~"
	case "code":
		return "`" + inner + "`"
	case "pre":
		return "```\n" + inner + "\n```"
	case "br":
		return "\n"
	case "hr":
		return "\n---\n"
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(tok.Tag[1] - '0')
		return "\n" + strings.Repeat("#", level) + " " + inner + "\n"
	case "a":
		href := attrValue(tok.Attrs, "href")
		return fmt.Sprintf("[%s](%s)", inner, href)
	case "img":
		alt := attrValue(tok.Attrs, "alt")
		src := attrValue(tok.Attrs, "src")
		return fmt.Sprintf("![%s](%s)", alt, src)
	default:
		return inner
	}
}

func attrValue(attrs []Attr, name string) string {
	for _, a := range attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value
		}
	}
	return ""
}
