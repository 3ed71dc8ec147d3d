// Package render paints display items and errors into named regions.
package render

import (
	"html/template"
	"strings"
)

// Anchor is a link with visible text.
type Anchor struct {
	Text   string
	Href   string
	Target string
}

// Region is a paintable display target.
type Region interface {
	// Clear removes all content and resets the class.
	Clear()
	SetClass(class string)
	AppendText(text string)
	AppendAnchor(a Anchor)
	// AppendLine appends one item line: a block carrying classes that
	// wraps a single anchor.
	AppendLine(classes []string, a Anchor)
}

type nodeKind int

const (
	nodeText nodeKind = iota
	nodeAnchor
	nodeLine
)

type node struct {
	kind    nodeKind
	text    string
	classes []string
	anchor  Anchor
}

// HTMLRegion records painted content and renders it as escaped HTML.
type HTMLRegion struct {
	class string
	nodes []node
}

func (r *HTMLRegion) Clear() {
	r.class = ""
	r.nodes = nil
}

func (r *HTMLRegion) SetClass(class string) { r.class = class }

func (r *HTMLRegion) AppendText(text string) {
	r.nodes = append(r.nodes, node{kind: nodeText, text: text})
}

func (r *HTMLRegion) AppendAnchor(a Anchor) {
	r.nodes = append(r.nodes, node{kind: nodeAnchor, anchor: a})
}

func (r *HTMLRegion) AppendLine(classes []string, a Anchor) {
	r.nodes = append(r.nodes, node{kind: nodeLine, classes: classes, anchor: a})
}

// Class is the region-level class.
func (r *HTMLRegion) Class() string { return r.class }

// Lines counts appended item lines.
func (r *HTMLRegion) Lines() int {
	n := 0
	for _, nd := range r.nodes {
		if nd.kind == nodeLine {
			n++
		}
	}
	return n
}

// Replay paints the recorded content into dst.
func (r *HTMLRegion) Replay(dst Region) {
	dst.Clear()
	for _, nd := range r.nodes {
		switch nd.kind {
		case nodeText:
			dst.AppendText(nd.text)
		case nodeAnchor:
			dst.AppendAnchor(nd.anchor)
		case nodeLine:
			dst.AppendLine(nd.classes, nd.anchor)
		}
	}
	dst.SetClass(r.class)
}

// HTML renders the region body.
func (r *HTMLRegion) HTML() template.HTML {
	var b strings.Builder
	for _, nd := range r.nodes {
		switch nd.kind {
		case nodeText:
			b.WriteString(template.HTMLEscapeString(nd.text))
		case nodeAnchor:
			writeAnchor(&b, nd.anchor)
		case nodeLine:
			b.WriteString(`<div class="`)
			b.WriteString(template.HTMLEscapeString(strings.Join(nd.classes, " ")))
			b.WriteString(`">`)
			writeAnchor(&b, nd.anchor)
			b.WriteString(`</div>`)
		}
	}
	return template.HTML(b.String())
}

func writeAnchor(b *strings.Builder, a Anchor) {
	b.WriteString(`<a href="`)
	b.WriteString(template.HTMLEscapeString(safeHref(a.Href)))
	b.WriteString(`"`)
	if a.Target != "" {
		b.WriteString(` target="`)
		b.WriteString(template.HTMLEscapeString(a.Target))
		b.WriteString(`" rel="noopener"`)
	}
	b.WriteString(`>`)
	b.WriteString(template.HTMLEscapeString(a.Text))
	b.WriteString(`</a>`)
}

// safeHref blanks hrefs with a scheme other than http(s) or mailto.
func safeHref(href string) string {
	lower := strings.ToLower(strings.TrimSpace(href))
	i := strings.IndexByte(lower, ':')
	if i < 0 || strings.ContainsAny(lower[:i], "/?#") {
		return href
	}
	switch lower[:i] {
	case "http", "https", "mailto":
		return href
	}
	return "#"
}
