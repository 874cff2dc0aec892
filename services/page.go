package services

import (
	"strings"

	"github.com/GoCodeAlone/duihost/uiruntime"
)

// TextPage is a page rendered as plain text lines.
type TextPage struct {
	ID     string
	Title  string
	Body   []string
	Params map[string]any

	// Font is the concrete font chosen for the page, empty for the default.
	Font  string
	links []uiruntime.Link
}

// PageID implements registry.Page.
func (p *TextPage) PageID() string { return p.ID }

// Links implements registry.Navigable.
func (p *TextPage) Links() []uiruntime.Link { return p.links }

// FontName implements registry.Styled.
func (p *TextPage) FontName() string { return p.Font }

// Render lays the page out with lines wrapped at width. A width below one
// disables wrapping.
func (p *TextPage) Render(width int) string {
	var b strings.Builder
	b.WriteString(p.Title)
	b.WriteString("\n")
	for _, line := range p.Body {
		for _, wrapped := range wrap(line, width) {
			b.WriteString("\n")
			b.WriteString(wrapped)
		}
	}
	return b.String()
}

func wrap(line string, width int) []string {
	if width < 1 || len(line) <= width {
		return []string{line}
	}
	var out []string
	var cur strings.Builder
	for _, word := range strings.Fields(line) {
		if cur.Len() > 0 && cur.Len()+1+len(word) > width {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
