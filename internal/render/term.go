package render

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#20B9B4")
	colorMuted  = lipgloss.Color("#5C7A84")
	colorError  = lipgloss.Color("#E74C3C")

	termTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	termNow     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	termElapsed = lipgloss.NewStyle().Foreground(colorMuted).Strikethrough(true)
	termLink    = lipgloss.NewStyle().Foreground(colorMuted)
	termError   = lipgloss.NewStyle().Foreground(colorError)
	termBox     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

// TermRegion renders a region for a terminal.
type TermRegion struct {
	Title string
	// ShowLinks appends each anchor's href to its line.
	ShowLinks bool

	class string
	lines []string
}

func (t *TermRegion) Clear() {
	t.class = ""
	t.lines = nil
}

func (t *TermRegion) SetClass(class string) { t.class = class }

func (t *TermRegion) AppendText(text string) {
	t.lines = append(t.lines, text)
}

func (t *TermRegion) AppendAnchor(a Anchor) {
	t.lines = append(t.lines, t.anchor(a))
}

func (t *TermRegion) AppendLine(classes []string, a Anchor) {
	line := "• " + a.Text
	switch {
	case slices.Contains(classes, classNow):
		line = termNow.Render("▶ " + a.Text)
	case slices.Contains(classes, classElapsed):
		line = termElapsed.Render(line)
	}
	if t.ShowLinks && a.Href != "" {
		line += " " + termLink.Render(a.Href)
	}
	t.lines = append(t.lines, line)
}

func (t *TermRegion) anchor(a Anchor) string {
	if a.Href == "" {
		return a.Text
	}
	return a.Text + " " + termLink.Render(a.Href)
}

// String renders the titled, boxed region.
func (t *TermRegion) String() string {
	body := strings.Join(t.lines, "\n")
	if t.class == classError {
		body = termError.Render(body)
	}
	return termBox.Render(termTitle.Render(t.Title) + "\n" + body)
}
