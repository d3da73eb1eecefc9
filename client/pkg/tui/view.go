package tui

import (
	"fmt"

	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/selection"
	"github.com/bryantinsley/arena/client/pkg/ui/components"
	"github.com/bryantinsley/arena/client/pkg/ui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m model) View() string {
	if m.fatal != nil {
		return m.viewFatal()
	}
	m.dispatcher.Clear()

	var body string
	switch m.screen {
	case screenSessions:
		body = m.viewSessions()
	case screenNewSession:
		body = m.viewNewSession()
	case screenAgents:
		body = m.viewAgents()
	case screenChat:
		body = m.viewChat()
	}
	h := m.bodyHeight()
	body = lipgloss.NewStyle().Height(h).MaxHeight(h).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		body,
		m.viewStatus(),
		m.viewFooter(),
	)
}

func (m model) viewHeader() string {
	title := styles.TitleStyle.Render("arena") + styles.SubtitleStyle.Render(m.screen.String())
	sub := ""
	if m.coord != nil {
		if s := m.coord.Session(); s.SessionID != "" {
			sub = fmt.Sprintf("%s · %s", s.ProjectTitle, s.Name)
		}
		if m.screen == screenChat {
			p := m.coord.Pair()
			sub += fmt.Sprintf(" · %s vs %s", p.First.Label(), p.Second.Label())
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, styles.SubtitleStyle.Render(sub), "")
}

func (m model) viewFatal() string {
	box := styles.FatalStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.StatusErrorStyle.Bold(true).Render("Initialization failed"),
		"",
		m.fatal.Error(),
		"",
		styles.MetaStyle.Render("Press q to quit."),
	))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m model) viewStatus() string {
	if m.notice != "" {
		return styles.NoticeStyle.Render(m.notice + "  (esc to dismiss)")
	}
	return m.help.ShortHelpView(helpFor(m.screen))
}

func pressKey(msg tea.KeyMsg) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg { return msg }
	}
}

func runeKey(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func (m model) viewFooter() string {
	var buttons []*components.Button
	switch m.screen {
	case screenSessions:
		buttons = []*components.Button{
			components.NewButton("enter", "Open", pressKey(enterKey)),
			components.NewButton("n", "New session", pressKey(runeKey("n"))),
			components.NewButton("r", "Reload", pressKey(runeKey("r"))),
			components.NewButton("q", "Quit", pressKey(runeKey("q"))),
		}
		buttons[0].Disabled = len(m.sessionList) == 0
	case screenNewSession:
		create := components.NewButton("enter", "Create", pressKey(enterKey))
		create.Disabled = m.titleTaken || m.loading
		buttons = []*components.Button{
			create,
			components.NewButton("esc", "Cancel", pressKey(tea.KeyMsg{Type: tea.KeyEsc})),
		}
	case screenAgents:
		buttons = []*components.Button{
			components.NewButton("enter", "Select", pressKey(enterKey)),
			components.NewButton("esc", "Back", pressKey(tea.KeyMsg{Type: tea.KeyEsc})),
			components.NewButton("r", "Reload", pressKey(runeKey("r"))),
		}
	case screenChat:
		send := components.NewButton("enter", "Send", pressKey(enterKey))
		send.Disabled = m.sending
		buttons = []*components.Button{
			send,
			components.NewButton("ctrl+b", "Agents", pressKey(tea.KeyMsg{Type: tea.KeyCtrlB})),
			components.NewButton("ctrl+r", "Sessions", pressKey(tea.KeyMsg{Type: tea.KeyCtrlR})),
			components.NewButton("ctrl+l", "Clear", pressKey(tea.KeyMsg{Type: tea.KeyCtrlL})),
		}
	}
	out := components.ButtonBar(0, m.height-1, buttons...)
	for _, b := range buttons {
		m.dispatcher.Register(b)
	}
	return out
}

func (m model) listItems(n int, build func(i int) *components.ListItem, cursor int) []*components.ListItem {
	items := make([]*components.ListItem, n)
	for i := range items {
		idx := i
		it := build(i)
		it.OnSelect = func() tea.Cmd {
			return func() tea.Msg { return listClickMsg{index: idx} }
		}
		it.SetSelected(i == cursor)
		items[i] = it
		m.dispatcher.Register(it)
	}
	return items
}

func (m model) viewSessions() string {
	if len(m.sessionList) == 0 {
		if m.loading {
			return styles.MetaStyle.Render("Loading sessions...")
		}
		return "No sessions yet. Press n to create one."
	}
	heading := lipgloss.NewStyle().Bold(true).Render("Choose a session")
	items := m.listItems(len(m.sessionList), func(i int) *components.ListItem {
		s := m.sessionList[i]
		detail := s.Name
		if !s.CreatedAt.IsZero() {
			detail += " · " + s.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		return components.NewListItem(s.ProjectTitle, detail, nil)
	}, m.sessionCursor)
	list, _ := components.List(0, headerRows+2, items)
	return lipgloss.JoinVertical(lipgloss.Left, heading, "", list)
}

func (m model) viewNewSession() string {
	rows := []string{
		lipgloss.NewStyle().Bold(true).Render("New session"),
		"",
		styles.InputLabelStyle.Render("Name") + m.nameInput.View(),
		styles.InputLabelStyle.Render("Project title") + m.titleInput.View(),
		"",
	}
	if m.titleTaken {
		rows = append(rows, styles.WarningStyle.Render("A session with this project title already exists."))
	}
	if m.formErr != "" {
		rows = append(rows, styles.FailedMessageStyle.Render(m.formErr))
	}
	if m.loading {
		rows = append(rows, styles.MetaStyle.Render("Creating session..."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func agentDetail(a gateway.AgentDescriptor) string {
	detail := fmt.Sprintf("in $%g/1K · out $%g/1K", a.InputPrice, a.OutputPrice)
	if a.Description != "" {
		detail = a.Description + " · " + detail
	}
	return detail
}

func (m model) viewAgents() string {
	sel := m.coord.Selection()
	if sel == nil {
		return ""
	}
	heading := "Pick the first agent"
	if first, ok := sel.First(); ok && sel.State() == selection.FirstSelected {
		heading = fmt.Sprintf("Pick the second agent (first: %s)", first.Label())
	}
	heading = lipgloss.NewStyle().Bold(true).Render(heading)

	options := m.agentOptions()
	switch {
	case m.loading && len(options) == 0:
		return lipgloss.JoinVertical(lipgloss.Left, heading, "", styles.MetaStyle.Render("Loading agents..."))
	case sel.LoadErr() != nil:
		return lipgloss.JoinVertical(lipgloss.Left, heading, "", "Could not load agents. Press r to retry.")
	case len(options) == 0:
		return lipgloss.JoinVertical(lipgloss.Left, heading, "", "No agents available.")
	}

	items := m.listItems(len(options), func(i int) *components.ListItem {
		return components.NewListItem(options[i].Label(), agentDetail(options[i]), nil)
	}, m.agentCursor)
	list, _ := components.List(0, headerRows+2, items)
	return lipgloss.JoinVertical(lipgloss.Left, heading, "", list)
}

func (m model) viewChat() string {
	var status string
	switch {
	case m.sending:
		status = styles.StatusProcessingStyle.Render(m.spinner.View() + " waiting for both agents")
	case m.lastJob != nil:
		status = styles.MetaStyle.Render(fmt.Sprintf("last exchange: %.2fs · $%.6f total",
			m.lastJob.Elapsed().Seconds(), m.lastJob.TotalCost()))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.grid.View(),
		"> "+m.input.View(),
		status,
	)
}
