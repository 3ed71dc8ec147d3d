package source

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// TaskRow is one row of a wiki task report table.
type TaskRow struct {
	Text       string
	DueDate    string
	RelWebLink string
}

var (
	reportRows     = cascadia.MustCompile("table.tasks-report tbody tr")
	reportDesc     = cascadia.MustCompile("td:nth-child(1)")
	reportDue      = cascadia.MustCompile("td:nth-child(2)")
	reportLocation = cascadia.MustCompile("td:nth-child(4) a")
)

// ParseTaskReport extracts the rows of a tasks-report table:
// description | due date | (unused) | location link.
// A missing cell leaves that field empty.
func ParseTaskReport(fragment string) ([]TaskRow, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse task report: %w", err)
	}

	rows := reportRows.MatchAll(doc)
	out := make([]TaskRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, TaskRow{
			Text:       textOf(reportDesc.MatchFirst(row)),
			DueDate:    textOf(reportDue.MatchFirst(row)),
			RelWebLink: attrOf(reportLocation.MatchFirst(row), "href"),
		})
	}
	return out, nil
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func attrOf(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
