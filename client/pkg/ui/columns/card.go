package columns

import (
	"fmt"
	"strings"

	"github.com/bryantinsley/arena/client/pkg/board"
	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/ui/components"
	"github.com/bryantinsley/arena/client/pkg/ui/styles"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// chrome is the border plus padding a card adds around its body.
const (
	chromeWidth  = 4
	chromeHeight = 2
	headerRows   = 2
	footerRows   = 1
)

// Card shows one agent's transcript in a scrollable viewport.
type Card struct {
	ID      board.ColumnID
	OnClick func() tea.Cmd

	column   board.Column
	renderer *Renderer
	viewport viewport.Model
	frame    string

	components.Region
	focused bool
}

// NewCard creates an empty card for column id.
func NewCard(id board.ColumnID, renderer *Renderer, onClick func() tea.Cmd) *Card {
	return &Card{
		ID:       id,
		OnClick:  onClick,
		renderer: renderer,
		column:   board.Column{ID: id, Status: board.StatusIdle},
		viewport: viewport.New(20, 5),
	}
}

// SetFocused sets the focus state
func (c *Card) SetFocused(focused bool) {
	c.focused = focused
}

// Focused reports whether the card has keyboard focus
func (c *Card) Focused() bool {
	return c.focused
}

// Column returns the last synced column.
func (c *Card) Column() board.Column {
	return c.column
}

// SetColumn replaces the transcript. The view stays pinned to the bottom
// unless the user has scrolled up.
func (c *Card) SetColumn(col board.Column) {
	pinned := c.viewport.AtBottom()
	c.column = col
	c.refresh()
	if pinned {
		c.viewport.GotoBottom()
	}
}

// SetFrame sets the spinner frame drawn next to pending placeholders.
func (c *Card) SetFrame(frame string) {
	if frame == c.frame {
		return
	}
	c.frame = frame
	if c.hasPending() {
		c.refresh()
	}
}

// SetSize sets the outer size including the border.
func (c *Card) SetSize(width, height int) {
	c.Width = width
	c.Height = height
	c.viewport.Width = max(width-chromeWidth, 10)
	c.viewport.Height = max(height-chromeHeight-headerRows-footerRows, 1)
	c.refresh()
}

// Scroll moves the transcript by delta lines.
func (c *Card) Scroll(delta int) {
	c.viewport.SetYOffset(c.viewport.YOffset + delta)
}

// PageSize is the number of visible transcript lines.
func (c *Card) PageSize() int {
	return c.viewport.Height
}

// Transcript returns the unclipped transcript text.
func (c *Card) Transcript() string {
	return c.transcript()
}

func (c *Card) hasPending() bool {
	for _, e := range c.column.Entries {
		if e.Pending {
			return true
		}
	}
	return false
}

func (c *Card) refresh() {
	c.viewport.SetContent(c.transcript())
}

func (c *Card) transcript() string {
	if len(c.column.Entries) == 0 {
		return styles.MetaStyle.Render("No messages yet.")
	}
	width := c.viewport.Width
	blocks := make([]string, 0, len(c.column.Entries))
	for _, e := range c.column.Entries {
		blocks = append(blocks, c.renderEntry(e, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (c *Card) renderEntry(e board.Entry, width int) string {
	wrap := lipgloss.NewStyle().Width(width)
	switch {
	case e.Role == board.RoleUser:
		return wrap.Render(styles.UserMessageStyle.Render("You: ") + e.Content)
	case e.Pending:
		text := board.PlaceholderText
		if c.frame != "" {
			text = c.frame + " " + text
		}
		return styles.MetaStyle.Render(text)
	case e.Failed:
		out := wrap.Render(styles.FailedMessageStyle.Render("✖ " + e.Content))
		if e.Metadata != nil {
			out += "\n" + styles.MetaStyle.Render(FormatMetadata(*e.Metadata))
		}
		return out
	default:
		out := c.renderer.Render(e.Content, width)
		if e.Metadata != nil {
			out += "\n" + styles.MetaStyle.Render(FormatMetadata(*e.Metadata))
		}
		return out
	}
}

// FormatMetadata renders latency and cost as "1.20s · $0.000400".
func FormatMetadata(md gateway.ResponseMetadata) string {
	return fmt.Sprintf("%.2fs · $%.6f", md.ProcessingTimeSeconds, md.CostUSD)
}

// StatusIcon returns the glyph and style for a column status.
func StatusIcon(s board.Status) (string, lipgloss.Style) {
	switch s {
	case board.StatusProcessing:
		return "⚡", styles.StatusProcessingStyle
	case board.StatusError:
		return "✖", styles.StatusErrorStyle
	case board.StatusReady:
		return "✓", styles.StatusReadyStyle
	default:
		return "zzz", styles.StatusIdleStyle
	}
}

// Totals sums cost and latency over the column's answered entries.
func Totals(col board.Column) (seconds, cost float64, answers int) {
	for _, e := range col.Entries {
		if e.Role != board.RoleAssistant || e.Pending || e.Metadata == nil {
			continue
		}
		seconds += e.Metadata.ProcessingTimeSeconds
		cost += e.Metadata.CostUSD
		answers++
	}
	return seconds, cost, answers
}

// Clickable implementation

func (c *Card) HandleClick(x, y int) tea.Cmd {
	if c.OnClick != nil {
		return c.OnClick()
	}
	return nil
}

// Render renders the card at its current size.
func (c *Card) Render() string {
	style := styles.CardStyle
	if c.focused {
		style = styles.CardFocusedStyle
	}

	icon, iconStyle := StatusIcon(c.column.Status)
	name := c.column.Agent.Label()
	if name == "" {
		name = string(c.ID)
	}
	header := fmt.Sprintf("%s %s", iconStyle.Render(icon), lipgloss.NewStyle().Bold(true).Render(name))
	sub := styles.MetaStyle.Render(fmt.Sprintf("%s · %s", c.ID, c.column.Status))

	seconds, cost, answers := Totals(c.column)
	footer := styles.MetaStyle.Render(fmt.Sprintf("%d answers · %.2fs · $%.6f", answers, seconds, cost))

	body := lipgloss.JoinVertical(lipgloss.Left, header, sub, c.viewport.View(), footer)
	return style.
		Width(max(c.Width-2, 1)).
		Height(max(c.Height-chromeHeight, 1)).
		Render(body)
}
