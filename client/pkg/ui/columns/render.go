package columns

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Renderer turns agent markdown into terminal output at a given width.
// Output is cached per content until the width changes.
type Renderer struct {
	style string
	width int
	tr    *glamour.TermRenderer
	cache map[string]string
}

// NewRenderer accepts a glamour standard style name ("dark", "light",
// "notty", ...) or a path to a JSON style file.
func NewRenderer(style string) *Renderer {
	if style == "" {
		style = "dark"
	}
	return &Renderer{style: style, cache: make(map[string]string)}
}

// Style returns the configured glamour style.
func (r *Renderer) Style() string {
	return r.style
}

// Render returns md rendered for width columns. If glamour fails the text
// is word-wrapped as is.
func (r *Renderer) Render(md string, width int) string {
	if width < 10 {
		width = 10
	}
	if width != r.width || r.tr == nil {
		r.width = width
		r.cache = make(map[string]string)
		tr, err := glamour.NewTermRenderer(
			glamour.WithStylePath(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			r.tr = nil
		} else {
			r.tr = tr
		}
	}
	if out, ok := r.cache[md]; ok {
		return out
	}

	out := ""
	if r.tr != nil {
		if rendered, err := r.tr.Render(md); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	if out == "" {
		out = lipgloss.NewStyle().Width(width).Render(md)
	}
	r.cache[md] = out
	return out
}
