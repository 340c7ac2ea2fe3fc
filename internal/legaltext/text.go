// Package legaltext holds the parsing rules shared by the US Code and UCC
// processors: markup cleaning, subsection markers, definition phrases,
// citation tables and keyword classification.
package legaltext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// strippedSelectors never contribute text to a section.
const strippedSelectors = "script, style, nav, header, footer, noscript"

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true, atom.Hr: true,
	atom.Li: true, atom.Main: true, atom.Ol: true, atom.P: true, atom.Pre: true,
	atom.Section: true, atom.Table: true, atom.Td: true, atom.Th: true,
	atom.Tr: true, atom.Ul: true,
}

// TextFromHTML strips markup from an HTML fragment or document. Block-level
// elements end a line so subsection markers keep their line boundaries.
func TextFromHTML(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return TextFromSelection(doc.Selection), nil
}

// TextFromSelection renders the text of a goquery selection with line
// breaks at block boundaries.
func TextFromSelection(sel *goquery.Selection) string {
	sel = sel.Clone()
	sel.Find(strippedSelectors).Remove()

	var b strings.Builder
	for _, n := range sel.Nodes {
		writeNodeText(&b, n)
	}
	return normalizeLines(b.String())
}

func writeNodeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode, html.DocumentNode:
	default:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNodeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// normalizeLines collapses whitespace inside each line and drops blank lines.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = Normalize(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Normalize collapses every whitespace run, newlines included, to one space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var searchStrip = regexp.MustCompile(`[^\w\s.,;:()\-'"]`)

// CleanForSearch prepares statute text for the search index: whitespace is
// collapsed, section signs are spelled out and other symbols removed.
func CleanForSearch(s string) string {
	s = strings.ReplaceAll(Normalize(s), "§", "section ")
	s = searchStrip.ReplaceAllString(s, "")
	return Normalize(s)
}
