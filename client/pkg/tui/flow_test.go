package tui

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bryantinsley/arena/client/pkg/chat"
	"github.com/bryantinsley/arena/client/pkg/coordinator"
	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/mockbackend"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
)

func quickAgents() []mockbackend.Agent {
	agents := mockbackend.ScriptedAgents()
	for i := range agents {
		if agents[i].Behavior != mockbackend.Silent {
			agents[i].Delay = 20 * time.Millisecond
		}
	}
	return agents
}

func waitFor(t *testing.T, tm *teatest.TestModel, want ...string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		for _, w := range want {
			if !bytes.Contains(out, []byte(w)) {
				return false
			}
		}
		return true
	}, teatest.WithDuration(5*time.Second), teatest.WithCheckInterval(20*time.Millisecond))
}

// Walks the whole flow against the in-memory backend: create a session,
// pick two agents, send one message and see both columns resolve.
func TestTUI_FullFlowAgainstMockBackend(t *testing.T) {
	srv := mockbackend.New(mockbackend.WithAgents(quickAgents()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	c := coordinator.New(gateway.New(ts.URL+mockbackend.BasePath), coordinator.Options{
		Chat: chat.Options{PollInterval: 10 * time.Millisecond, Timeout: 3 * time.Second},
	})
	m := initialModel(context.Background(), c, Options{MarkdownStyle: "notty"})
	t.Cleanup(m.unsubscribe)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(160, 40))

	waitFor(t, tm, "No sessions yet")
	tm.Send(runeKey("n"))
	waitFor(t, tm, "New session")

	tm.Type("Ada")
	tm.Send(tea.KeyMsg{Type: tea.KeyTab})
	tm.Type("Engine")
	tm.Send(enterKey)
	waitFor(t, tm, "Pick the first agent", "Fast")

	tm.Send(enterKey)
	waitFor(t, tm, "Pick the second agent (first: Fast)")

	// Second list is slow, flaky, silent.
	tm.Send(tea.KeyMsg{Type: tea.KeyDown})
	tm.Send(enterKey)
	waitFor(t, tm, "Fast vs Flaky")

	tm.Type("Compare yourselves")
	tm.Send(enterKey)
	waitFor(t, tm, "simulated answer", "Error generating response")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	final := tm.FinalModel(t, teatest.WithFinalTimeout(2*time.Second)).(model)

	if final.screen != screenChat {
		t.Errorf("Expected chat screen, got %v", final.screen)
	}
	if c.Board().PendingCount() != 0 {
		t.Errorf("Expected no pending placeholders, got %d", c.Board().PendingCount())
	}
	left, right := c.Board().Column("ai-1"), c.Board().Column("ai-2")
	if left.Agent.Key != "fast" || right.Agent.Key != "flaky" {
		t.Errorf("Expected fast|flaky columns, got %s|%s", left.Agent.Key, right.Agent.Key)
	}
	if n := len(right.Entries); n != 2 || !right.Entries[1].Failed {
		t.Errorf("Expected a failed answer in the right column, got %+v", right.Entries)
	}
}

func TestTUI_DuplicateTitleFromBackendShowsNotice(t *testing.T) {
	srv := mockbackend.New(mockbackend.WithAgents(quickAgents()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	client := gateway.New(ts.URL + mockbackend.BasePath)
	// Created behind the client's back, so the local cache cannot warn.
	if _, err := client.CreateSession(context.Background(), "Bob", "Engine"); err != nil {
		t.Fatal(err)
	}

	c := coordinator.New(client, coordinator.Options{})
	m := initialModel(context.Background(), c, Options{MarkdownStyle: "notty"})
	t.Cleanup(m.unsubscribe)
	m.loading = false

	m, _ = update(t, m, runeKey("n"))
	m = typeText(t, m, "Ada")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "Engine")
	m, cmd := update(t, m, enterKey)
	if cmd == nil {
		t.Fatal("Expected a create command")
	}
	m, _ = update(t, m, cmd())

	if m.screen != screenNewSession {
		t.Errorf("Expected to stay on the form, got %v", m.screen)
	}
	if m.notice != "Project title already exists" {
		t.Errorf("Expected backend detail in the notice bar, got %q", m.notice)
	}
}
