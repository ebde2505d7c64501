package mailbox

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags start content on a fresh line when they open or close.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"div": true, "dl": true, "dt": true, "dd": true, "fieldset": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"main": true, "nav": true, "ol": true, "pre": true, "section": true,
	"table": true, "ul": true,
}

// rawTextTags have their entire content dropped.
var rawTextTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true,
}

// htmlToText converts an HTML document to a plain-text approximation.
// Block-level tags become line breaks, paragraphs become blank lines,
// list items become bullet lines, table cells become tab-separated
// columns, links render as "text (url)", and images render as
// "[image: alt]". Script and style content is dropped entirely.
// Entities are decoded by the tokenizer. The output is raw; callers
// run it through Normalize for whitespace and URL cleanup.
func htmlToText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))

	var b strings.Builder
	var skip string   // raw-text tag currently being skipped
	var hrefs []string // open link targets, innermost last

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or malformed input; either way, emit what we have.
			return b.String()
		}

		switch tt {
		case html.TextToken:
			if skip == "" {
				b.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			name := tok.Data
			if skip != "" {
				break
			}
			switch {
			case rawTextTags[name]:
				if tt == html.StartTagToken {
					skip = name
				}
			case name == "br":
				b.WriteByte('\n')
			case name == "hr":
				b.WriteString("\n")
			case name == "p":
				b.WriteString("\n\n")
			case name == "li":
				b.WriteString("\n- ")
			case name == "img":
				if alt := attrValue(tok, "alt"); alt != "" {
					b.WriteString("[image: " + alt + "]")
				} else {
					b.WriteString("[image]")
				}
			case name == "a":
				if tt == html.StartTagToken {
					hrefs = append(hrefs, attrValue(tok, "href"))
				}
			case blockTags[name]:
				b.WriteByte('\n')
			}

		case html.EndTagToken:
			tok := z.Token()
			name := tok.Data
			if skip != "" {
				if name == skip {
					skip = ""
				}
				break
			}
			switch {
			case name == "p":
				b.WriteString("\n\n")
			case name == "tr":
				b.WriteByte('\n')
			case name == "td" || name == "th":
				b.WriteByte('\t')
			case name == "a":
				if len(hrefs) > 0 {
					href := hrefs[len(hrefs)-1]
					hrefs = hrefs[:len(hrefs)-1]
					if href != "" && !strings.HasPrefix(href, "#") {
						b.WriteString(" (" + href + ")")
					}
				}
			case blockTags[name]:
				b.WriteByte('\n')
			}
		}
	}
}

func attrValue(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
