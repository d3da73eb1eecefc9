package components

import (
	"github.com/bryantinsley/arena/client/pkg/ui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ListItem is a selectable row with an optional muted detail line
type ListItem struct {
	Label    string
	Detail   string
	Disabled bool
	OnSelect func() tea.Cmd

	Region
	selected bool
}

// NewListItem creates a new list item
func NewListItem(label, detail string, onSelect func() tea.Cmd) *ListItem {
	return &ListItem{
		Label:    label,
		Detail:   detail,
		OnSelect: onSelect,
	}
}

// SetSelected sets the selected state
func (l *ListItem) SetSelected(selected bool) {
	l.selected = selected
}

// Selected reports whether the item is highlighted
func (l *ListItem) Selected() bool {
	return l.selected
}

// HandleClick processes a click at the given position
func (l *ListItem) HandleClick(x, y int) tea.Cmd {
	if l.Disabled || l.OnSelect == nil {
		return nil
	}
	return l.OnSelect()
}

// Render renders the list item
func (l *ListItem) Render() string {
	style := styles.ListItemStyle
	label := "  " + l.Label
	switch {
	case l.Disabled:
		style = styles.ListItemDisabledStyle
	case l.selected:
		style = styles.ListItemSelectedStyle
		label = "> " + l.Label
	}

	content := label
	if l.Detail != "" {
		content += "\n    " + styles.ListDetailStyle.Render(l.Detail)
	}

	rendered := style.Render(content)
	l.Width = lipgloss.Width(rendered)
	l.Height = lipgloss.Height(rendered)
	return rendered
}

// List renders items top to bottom starting at (x, y) and registers
// their bounds. The returned height is the total rows used.
func List(x, y int, items []*ListItem) (string, int) {
	rows := make([]string, 0, len(items))
	height := 0
	for _, it := range items {
		r := it.Render()
		it.SetBounds(x, y+height, it.Width, it.Height)
		height += it.Height
		rows = append(rows, r)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...), height
}
