package tui

import (
	"context"

	"github.com/bryantinsley/arena/client/pkg/board"
	"github.com/bryantinsley/arena/client/pkg/chat"
	"github.com/bryantinsley/arena/client/pkg/coordinator"
	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/selection"
	"github.com/bryantinsley/arena/client/pkg/sessions"
	tea "github.com/charmbracelet/bubbletea"
)

type healthMsg struct{ err error }

type sessionsLoadedMsg struct {
	sessions []gateway.Session
	err      error
}

type sessionChosenMsg struct {
	session gateway.Session
	err     error
}

type catalogLoadedMsg struct {
	agents []gateway.AgentDescriptor
	err    error
}

type firstSelectedMsg struct {
	options []gateway.AgentDescriptor
	err     error
}

type pairReadyMsg struct {
	pair selection.Pair
	err  error
}

type boardEventMsg struct {
	event board.Event
	ok    bool
}

type jobDoneMsg struct {
	seq int
	job chat.Job
	err error
}

// listClickMsg is sent when a list row is clicked.
type listClickMsg struct{ index int }

// Commands

func checkHealth(ctx context.Context, c *coordinator.Coordinator) tea.Cmd {
	return func() tea.Msg {
		return healthMsg{err: c.Start(ctx)}
	}
}

func loadSessions(ctx context.Context, ctrl *sessions.Controller) tea.Cmd {
	return func() tea.Msg {
		list, err := ctrl.ListSessions(ctx)
		return sessionsLoadedMsg{sessions: list, err: err}
	}
}

func chooseSession(ctx context.Context, ctrl *sessions.Controller, id string) tea.Cmd {
	return func() tea.Msg {
		s, err := ctrl.SelectSession(ctx, id)
		return sessionChosenMsg{session: s, err: err}
	}
}

func createSession(ctx context.Context, ctrl *sessions.Controller, name, title string) tea.Cmd {
	return func() tea.Msg {
		s, err := ctrl.CreateSession(ctx, name, title)
		return sessionChosenMsg{session: s, err: err}
	}
}

func loadCatalog(ctx context.Context, ctrl *selection.Controller) tea.Cmd {
	return func() tea.Msg {
		agents, err := ctrl.LoadCatalog(ctx)
		return catalogLoadedMsg{agents: agents, err: err}
	}
}

func selectFirst(ctx context.Context, ctrl *selection.Controller, key string) tea.Cmd {
	return func() tea.Msg {
		opts, err := ctrl.SelectFirst(ctx, key)
		return firstSelectedMsg{options: opts, err: err}
	}
}

func selectSecond(ctx context.Context, ctrl *selection.Controller, key string) tea.Cmd {
	return func() tea.Msg {
		pair, err := ctrl.SelectSecond(ctx, key)
		return pairReadyMsg{pair: pair, err: err}
	}
}

func sendMessage(c *coordinator.Coordinator, seq int, text string) tea.Cmd {
	return func() tea.Msg {
		job, err := c.SendMessage(text)
		return jobDoneMsg{seq: seq, job: job, err: err}
	}
}

func waitForBoardEvent(ch <-chan board.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return boardEventMsg{event: ev, ok: ok}
	}
}
