package tui

import (
	"errors"
	"strings"

	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/selection"
	"github.com/bryantinsley/arena/client/pkg/sessions"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case healthMsg:
		if msg.err != nil {
			m.logger.Error("startup failed", "error", msg.err)
			m.fatal = msg.err
			return m, nil
		}
		m.loading = true
		return m, loadSessions(m.ctx, m.coord.Sessions())

	case sessionsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.notice = "Could not load sessions: " + gateway.Message(msg.err)
			return m, nil
		}
		m.sessionList = msg.sessions
		m.sessionCursor = clamp(m.sessionCursor, len(m.sessionList))
		return m, nil

	case sessionChosenMsg:
		m.loading = false
		if msg.err != nil {
			if m.screen == screenNewSession && errors.Is(msg.err, sessions.ErrValidation) {
				m.formErr = msg.err.Error()
				return m, nil
			}
			m.notice = gateway.Message(msg.err)
			return m, nil
		}
		if err := m.coord.EnterAISelection(msg.session); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.nameInput.Blur()
		m.titleInput.Blur()
		return m.enterAgents()

	case catalogLoadedMsg:
		m.loading = false
		m.agentCursor = 0
		if msg.err != nil {
			m.notice = "Could not load agents: " + gateway.Message(msg.err)
		}
		return m, nil

	case firstSelectedMsg:
		m.loading = false
		if msg.err != nil {
			m.notice = gateway.Message(msg.err)
			return m, nil
		}
		m.agentCursor = 0
		return m, nil

	case pairReadyMsg:
		m.loading = false
		if msg.err != nil {
			if errors.Is(msg.err, selection.ErrNotReady) {
				m.notice = "The backend did not confirm the pair. Press enter to retry."
			} else {
				m.notice = gateway.Message(msg.err)
			}
			return m, nil
		}
		if err := m.coord.EnterChat(msg.pair); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.screen = screenChat
		m.lastJob = nil
		m.grid.Focus(0)
		m.grid.Sync(m.coord.Board().Snapshot())
		return m, m.input.Focus()

	case boardEventMsg:
		if !msg.ok {
			return m, nil
		}
		m.grid.Sync(m.coord.Board().Snapshot())
		return m, waitForBoardEvent(m.events)

	case jobDoneMsg:
		// A job from a chat screen the user already left.
		if msg.seq != m.sendSeq {
			return m, nil
		}
		m.sending = false
		m.grid.SetFrame("")
		if msg.err != nil {
			m.notice = gateway.Message(msg.err)
			return m, nil
		}
		job := msg.job
		m.lastJob = &job
		if job.Err != nil {
			m.notice = "Chat request failed: " + gateway.Message(job.Err)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.grid.SetFrame(m.spinner.View())
		return m, cmd

	case listClickMsg:
		switch m.screen {
		case screenSessions:
			m.sessionCursor = msg.index
			return m.handleSessionsKeys(enterKey)
		case screenAgents:
			m.agentCursor = msg.index
			return m.handleAgentsKeys(enterKey)
		}
	}
	return m, nil
}

var enterKey = tea.KeyMsg{Type: tea.KeyEnter}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.ForceQuit) {
		return m, tea.Quit
	}
	if m.fatal != nil {
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.notice != "" && key.Matches(msg, keys.Back) {
		m.notice = ""
		return m, nil
	}

	switch m.screen {
	case screenSessions:
		return m.handleSessionsKeys(msg)
	case screenNewSession:
		return m.handleNewSessionKeys(msg)
	case screenAgents:
		return m.handleAgentsKeys(msg)
	case screenChat:
		return m.handleChatKeys(msg)
	}
	return m, nil
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.fatal != nil {
		return m, nil
	}
	var cmds []tea.Cmd
	if m.screen == screenChat {
		_, cmd := m.grid.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, m.dispatcher.HandleMouse(msg))
	return m, tea.Batch(cmds...)
}

func (m model) handleSessionsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.sessionCursor > 0 {
			m.sessionCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.sessionCursor < len(m.sessionList)-1 {
			m.sessionCursor++
		}
	case key.Matches(msg, keys.Select):
		if m.loading || len(m.sessionList) == 0 {
			return m, nil
		}
		m.loading = true
		return m, chooseSession(m.ctx, m.coord.Sessions(), m.sessionList[m.sessionCursor].SessionID)
	case key.Matches(msg, keys.New):
		m.screen = screenNewSession
		m.nameInput.Reset()
		m.titleInput.Reset()
		m.titleInput.Blur()
		m.formErr = ""
		m.titleTaken = false
		return m, m.nameInput.Focus()
	case key.Matches(msg, keys.Reload):
		m.loading = true
		return m, loadSessions(m.ctx, m.coord.Sessions())
	}
	return m, nil
}

func (m model) handleNewSessionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.screen = screenSessions
		m.nameInput.Blur()
		m.titleInput.Blur()
		return m, nil
	case key.Matches(msg, keys.NextField):
		return m, m.toggleField()
	case key.Matches(msg, keys.Select):
		if m.nameInput.Focused() {
			return m, m.toggleField()
		}
		if m.loading {
			return m, nil
		}
		if m.titleTaken {
			m.formErr = "A session with this project title already exists"
			return m, nil
		}
		name, title := m.nameInput.Value(), m.titleInput.Value()
		if err := sessions.Validate(name, title); err != nil {
			m.formErr = err.Error()
			return m, nil
		}
		m.formErr = ""
		m.loading = true
		return m, createSession(m.ctx, m.coord.Sessions(), name, title)
	}

	var cmd tea.Cmd
	if m.nameInput.Focused() {
		m.nameInput, cmd = m.nameInput.Update(msg)
	} else {
		m.titleInput, cmd = m.titleInput.Update(msg)
	}
	m.formErr = ""
	m.titleTaken = m.coord.Sessions().TitleTaken(m.titleInput.Value())
	return m, cmd
}

func (m *model) toggleField() tea.Cmd {
	if m.nameInput.Focused() {
		m.nameInput.Blur()
		return m.titleInput.Focus()
	}
	m.titleInput.Blur()
	return m.nameInput.Focus()
}

func (m model) enterAgents() (tea.Model, tea.Cmd) {
	m.screen = screenAgents
	m.agentCursor = 0
	m.loading = true
	return m, loadCatalog(m.ctx, m.coord.Selection())
}

// agentOptions is the list the picker currently offers.
func (m model) agentOptions() []gateway.AgentDescriptor {
	sel := m.coord.Selection()
	if sel == nil {
		return nil
	}
	switch sel.State() {
	case selection.NoneSelected:
		return sel.Catalog()
	case selection.FirstSelected:
		return sel.SecondOptions()
	default:
		return nil
	}
}

func (m model) handleAgentsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sel := m.coord.Selection()
	if sel == nil {
		return m, nil
	}
	options := m.agentOptions()

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.agentCursor > 0 {
			m.agentCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.agentCursor < len(options)-1 {
			m.agentCursor++
		}
	case key.Matches(msg, keys.Reload):
		if m.loading {
			return m, nil
		}
		sel.Reset()
		return m.enterAgents()
	case key.Matches(msg, keys.Back):
		if sel.State() != selection.NoneSelected {
			sel.Reset()
			m.agentCursor = 0
			return m, nil
		}
		m.coord.Reset()
		m.screen = screenSessions
		m.loading = true
		return m, loadSessions(m.ctx, m.coord.Sessions())
	case key.Matches(msg, keys.Select):
		if m.loading || len(options) == 0 {
			return m, nil
		}
		picked := options[clamp(m.agentCursor, len(options))].Key
		m.loading = true
		if sel.State() == selection.FirstSelected {
			return m, selectSecond(m.ctx, sel, picked)
		}
		return m, selectFirst(m.ctx, sel, picked)
	}
	return m, nil
}

func (m model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Agents):
		if err := m.coord.BackToAgents(); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.input.Blur()
		m.sending = false
		m.sendSeq++
		return m.enterAgents()
	case key.Matches(msg, keys.Reset):
		m.coord.Reset()
		m.input.Blur()
		m.sending = false
		m.sendSeq++
		m.screen = screenSessions
		m.loading = true
		return m, loadSessions(m.ctx, m.coord.Sessions())
	case key.Matches(msg, keys.Clear):
		if err := m.coord.ClearChat(); err != nil {
			m.notice = "Cannot clear while a message is in flight"
			return m, nil
		}
		m.lastJob = nil
		m.grid.Sync(m.coord.Board().Snapshot())
		return m, nil
	case key.Matches(msg, keys.Focus, keys.PageUp, keys.PageDown),
		msg.Type == tea.KeyUp, msg.Type == tea.KeyDown:
		m.grid.Update(msg)
		return m, nil
	case key.Matches(msg, keys.Send):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if m.sending {
			m.notice = "A message is already in flight"
			return m, nil
		}
		m.sending = true
		m.sendSeq++
		m.notice = ""
		m.input.Reset()
		return m, tea.Batch(sendMessage(m.coord, m.sendSeq, text), m.spinner.Tick)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
