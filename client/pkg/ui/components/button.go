package components

import (
	"github.com/bryantinsley/arena/client/pkg/ui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Button is a clickable action trigger. A disabled button renders dimmed
// and ignores clicks.
type Button struct {
	Shortcut string
	Label    string
	OnClick  func() tea.Cmd
	Disabled bool

	Region
	focused bool
}

// NewButton creates a button with a shortcut hint and click handler
func NewButton(shortcut, label string, onClick func() tea.Cmd) *Button {
	return &Button{
		Shortcut: shortcut,
		Label:    label,
		OnClick:  onClick,
	}
}

// SetFocused sets the focus state of the button
func (b *Button) SetFocused(focused bool) {
	b.focused = focused
}

// HandleClick processes a click at the given position
func (b *Button) HandleClick(x, y int) tea.Cmd {
	if b.Disabled || b.OnClick == nil {
		return nil
	}
	return b.OnClick()
}

// Render renders the button and records its rendered size
func (b *Button) Render() string {
	style, keyStyle := styles.ButtonStyle, styles.KeyStyle
	switch {
	case b.Disabled:
		style, keyStyle = styles.ButtonDimmedStyle, styles.KeyDimmedStyle
	case b.focused:
		style = styles.ButtonFocusedStyle
	}

	content := b.Label
	if b.Shortcut != "" {
		content = keyStyle.Render(b.Shortcut) + " " + b.Label
	}

	rendered := style.Render(content)
	b.Width = lipgloss.Width(rendered)
	b.Height = lipgloss.Height(rendered)
	return rendered
}

// ButtonBar lays buttons out left to right on row y, starting at x, and
// registers their bounds.
func ButtonBar(x, y int, buttons ...*Button) string {
	parts := make([]string, 0, len(buttons)*2)
	for i, b := range buttons {
		if i > 0 {
			parts = append(parts, " ")
			x++
		}
		r := b.Render()
		b.SetBounds(x, y, b.Width, b.Height)
		x += b.Width
		parts = append(parts, r)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
