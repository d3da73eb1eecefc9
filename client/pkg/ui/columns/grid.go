// Package columns renders the two agent transcripts side by side.
package columns

import (
	"github.com/bryantinsley/arena/client/pkg/board"
	"github.com/bryantinsley/arena/client/pkg/ui/components"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const wheelStep = 3

// Grid holds one card per board column.
type Grid struct {
	Cards      [2]*Card
	FocusIndex int
	Dispatcher *components.ClickDispatcher

	width, height int
	x, y          int
}

// NewGrid creates both cards sharing one renderer. The left card starts
// focused.
func NewGrid(renderer *Renderer) *Grid {
	g := &Grid{}
	clickables := make([]components.Clickable, 0, len(board.Columns))
	for i, id := range board.Columns {
		idx := i
		g.Cards[i] = NewCard(id, renderer, func() tea.Cmd {
			g.Focus(idx)
			return nil
		})
		clickables = append(clickables, g.Cards[i])
	}
	g.Dispatcher = components.NewClickDispatcher(clickables)
	g.Cards[0].SetFocused(true)
	return g
}

// Sync copies a board snapshot into the cards.
func (g *Grid) Sync(cols [2]board.Column) {
	for i, col := range cols {
		g.Cards[i].SetColumn(col)
	}
}

// SetFrame forwards the spinner frame to both cards.
func (g *Grid) SetFrame(frame string) {
	for _, c := range g.Cards {
		c.SetFrame(frame)
	}
}

// SetSize splits width evenly between the cards.
func (g *Grid) SetSize(width, height int) {
	g.width = width
	g.height = height
	left := width / 2
	g.Cards[0].SetSize(left, height)
	g.Cards[1].SetSize(width-left, height)
}

// SetOrigin sets where the grid is drawn on screen, for click detection.
func (g *Grid) SetOrigin(x, y int) {
	g.x = x
	g.y = y
}

// Focus moves keyboard focus to card i.
func (g *Grid) Focus(i int) {
	if i < 0 || i >= len(g.Cards) {
		return
	}
	g.Cards[g.FocusIndex].SetFocused(false)
	g.FocusIndex = i
	g.Cards[i].SetFocused(true)
}

// MoveFocus moves focus by delta, wrapping around.
func (g *Grid) MoveFocus(delta int) {
	n := len(g.Cards)
	g.Focus(((g.FocusIndex+delta)%n + n) % n)
}

// Focused returns the focused card.
func (g *Grid) Focused() *Card {
	return g.Cards[g.FocusIndex]
}

func (g *Grid) Init() tea.Cmd {
	return nil
}

func (g *Grid) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab":
			g.MoveFocus(1)
		case "pgup":
			g.Focused().Scroll(-g.Focused().PageSize())
		case "pgdown":
			g.Focused().Scroll(g.Focused().PageSize())
		case "up":
			g.Focused().Scroll(-1)
		case "down":
			g.Focused().Scroll(1)
		}
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown) {
			delta := wheelStep
			if msg.Button == tea.MouseButtonWheelUp {
				delta = -wheelStep
			}
			for _, c := range g.Cards {
				if c.Contains(msg.X, msg.Y) {
					c.Scroll(delta)
				}
			}
			return g, nil
		}
		return g, g.Dispatcher.HandleMouse(msg)
	}
	return g, nil
}

func (g *Grid) View() string {
	views := make([]string, 0, len(g.Cards))
	x := g.x
	for _, c := range g.Cards {
		rendered := c.Render()
		w := lipgloss.Width(rendered)
		c.SetBounds(x, g.y, w, lipgloss.Height(rendered))
		x += w
		views = append(views, rendered)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}
