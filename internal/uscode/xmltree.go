package uscode

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/legaltext"
)

// node is one element or character-data run of a parsed USLM document.
// Character data nodes have an empty name.
type node struct {
	name     string
	space    string
	attrs    []xml.Attr
	data     string
	parent   *node
	children []*node
	// start and end are byte offsets of the element's markup in the source.
	start, end int64
}

// parseTree reads the whole document. The decoder is lenient: HTML entities
// are accepted and unclosed elements are closed at their parent's end tag.
// No element is treated as void, so USLM's <meta> keeps its children.
func parseTree(data []byte) (*node, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	d.Entity = xml.HTMLEntity

	root := &node{name: "#document"}
	cur := root
	for {
		offset := d.InputOffset()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, space: t.Name.Space, attrs: t.Attr, parent: cur, start: offset}
			cur.children = append(cur.children, n)
			cur = n
		case xml.EndElement:
			cur.end = d.InputOffset()
			if cur.parent != nil {
				cur = cur.parent
			}
		case xml.CharData:
			cur.children = append(cur.children, &node{data: string(t), parent: cur})
		}
	}
	root.end = int64(len(data))
	return root, nil
}

func (n *node) isElement() bool {
	return n.name != ""
}

func (n *node) attr(name string) string {
	for _, a := range n.attrs {
		if a.Name.Local == name {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

// child returns the first direct child element with one of the given names.
func (n *node) child(names ...string) *node {
	for _, c := range n.children {
		if !c.isElement() {
			continue
		}
		for _, name := range names {
			if c.name == name {
				return c
			}
		}
	}
	return nil
}

// find returns the first descendant element, in document order, for which
// match is true. Subtrees for which prune is true are not entered.
func (n *node) find(match, prune func(*node) bool) *node {
	for _, c := range n.children {
		if !c.isElement() {
			continue
		}
		if match(c) {
			return c
		}
		if prune != nil && prune(c) {
			continue
		}
		if found := c.find(match, prune); found != nil {
			return found
		}
	}
	return nil
}

// collect returns every descendant element for which match is true without
// descending into matched elements or pruned subtrees.
func (n *node) collect(match, prune func(*node) bool) []*node {
	var out []*node
	for _, c := range n.children {
		if !c.isElement() {
			continue
		}
		if match(c) {
			out = append(out, c)
			continue
		}
		if prune != nil && prune(c) {
			continue
		}
		out = append(out, c.collect(match, prune)...)
	}
	return out
}

// ancestor returns the nearest enclosing element with one of the names.
func (n *node) ancestor(names ...string) *node {
	for p := n.parent; p != nil; p = p.parent {
		for _, name := range names {
			if p.name == name {
				return p
			}
		}
	}
	return nil
}

func (n *node) markup(data []byte) string {
	if n.end <= n.start || n.end > int64(len(data)) {
		return ""
	}
	return string(data[n.start:n.end])
}

// blockNames end a line in rendered text so subsection markers start lines.
var blockNames = map[string]bool{
	"section": true, "subsection": true, "paragraph": true, "subparagraph": true,
	"clause": true, "subclause": true, "item": true, "subitem": true, "subsubitem": true,
	"continuation": true, "p": true, "sourceCredit": true, "quotedContent": true,
	"table": true, "tr": true, "li": true, "note": true, "notes": true, "br": true,
}

// spacedNames are inline elements that never run into the following word.
var spacedNames = map[string]bool{
	"num": true, "heading": true, "chapeau": true, "content": true, "td": true, "th": true,
}

// text renders the subtree with line breaks at block boundaries. Direct
// children accepted by skip are left out.
func (n *node) text(skip func(*node) bool) string {
	var b strings.Builder
	for _, c := range n.children {
		if skip != nil && c.isElement() && skip(c) {
			continue
		}
		c.writeText(&b)
	}
	return normalize(b.String())
}

func (n *node) writeText(b *strings.Builder) {
	if !n.isElement() {
		b.WriteString(n.data)
		return
	}
	block := blockNames[n.name]
	if block {
		b.WriteByte('\n')
	}
	for _, c := range n.children {
		c.writeText(b)
	}
	switch {
	case block:
		b.WriteByte('\n')
	case spacedNames[n.name]:
		b.WriteByte(' ')
	}
}

// normalize collapses whitespace per line and drops blank lines.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = legaltext.Normalize(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
