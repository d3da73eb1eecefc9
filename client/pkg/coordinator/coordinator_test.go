package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bryantinsley/arena/client/pkg/chat"
	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/gateway/gatewaytest"
	"github.com/bryantinsley/arena/client/pkg/selection"
)

var pair = selection.Pair{
	First:  gateway.AgentDescriptor{Key: "a"},
	Second: gateway.AgentDescriptor{Key: "b"},
}

func testOptions() Options {
	return Options{Chat: chat.Options{PollInterval: 5 * time.Millisecond, Timeout: 5 * time.Second}}
}

func TestCoordinator_HappyPath(t *testing.T) {
	c := New(&gatewaytest.Fake{}, testOptions())
	if c.State() != UserSelection {
		t.Fatalf("Expected UserSelection, got %v", c.State())
	}

	if err := c.EnterAISelection(gateway.Session{SessionID: "s1"}); err != nil {
		t.Fatalf("EnterAISelection failed: %v", err)
	}
	if c.State() != AISelection || c.Selection() == nil {
		t.Fatalf("Expected AISelection with a picker, got %v", c.State())
	}

	if err := c.EnterChat(pair); err != nil {
		t.Fatalf("EnterChat failed: %v", err)
	}
	if c.State() != ChatComparison || c.Chat() == nil {
		t.Fatalf("Expected ChatComparison with a chat controller, got %v", c.State())
	}
	if c.Board().Column("ai-1").Agent.Key != "a" {
		t.Error("Expected ai-1 bound to the first agent")
	}
}

func TestCoordinator_Guards(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Coordinator)
		act   func(c *Coordinator) error
		want  State
	}{
		{
			name: "empty session id",
			act:  func(c *Coordinator) error { return c.EnterAISelection(gateway.Session{}) },
			want: UserSelection,
		},
		{
			name: "chat before selection",
			act:  func(c *Coordinator) error { return c.EnterChat(pair) },
			want: UserSelection,
		},
		{
			name:  "same agent twice",
			setup: func(c *Coordinator) { c.EnterAISelection(gateway.Session{SessionID: "s1"}) },
			act: func(c *Coordinator) error {
				return c.EnterChat(selection.Pair{First: pair.First, Second: pair.First})
			},
			want: AISelection,
		},
		{
			name:  "missing second agent",
			setup: func(c *Coordinator) { c.EnterAISelection(gateway.Session{SessionID: "s1"}) },
			act: func(c *Coordinator) error {
				return c.EnterChat(selection.Pair{First: pair.First})
			},
			want: AISelection,
		},
		{
			name: "back to agents outside chat",
			act:  func(c *Coordinator) error { return c.BackToAgents() },
			want: UserSelection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&gatewaytest.Fake{}, testOptions())
			if tt.setup != nil {
				tt.setup(c)
			}
			err := tt.act(c)
			if !errors.Is(err, ErrTransitionRefused) {
				t.Errorf("Expected ErrTransitionRefused, got %v", err)
			}
			var tErr *TransitionError
			if !errors.As(err, &tErr) || tErr.Reason == "" {
				t.Errorf("Expected a TransitionError with a reason, got %v", err)
			}
			if c.State() != tt.want {
				t.Errorf("Expected state %v, got %v", tt.want, c.State())
			}
		})
	}
}

func TestCoordinator_ResetCancelsPolling(t *testing.T) {
	polling := make(chan struct{})
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			select {
			case polling <- struct{}{}:
			default:
			}
			return gateway.ChatStatus{Status: gateway.StatusProcessing}, nil
		},
	}
	c := New(fake, testOptions())
	c.EnterAISelection(gateway.Session{SessionID: "s1"})
	c.EnterChat(pair)

	result := make(chan chat.Job, 1)
	go func() {
		job, _ := c.SendMessage("hello")
		result <- job
	}()

	<-polling
	c.Reset()

	select {
	case job := <-result:
		for i, slot := range job.Slots {
			if slot.Outcome.Reason != chat.ReasonCancelled {
				t.Errorf("Slot %d: expected %q, got %q", i, chat.ReasonCancelled, slot.Outcome.Reason)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected reset to stop the poll loop")
	}

	if c.State() != UserSelection {
		t.Errorf("Expected UserSelection after reset, got %v", c.State())
	}
	if c.Chat() != nil || c.Selection() != nil {
		t.Error("Expected controllers to be dropped after reset")
	}
	if c.Session().SessionID != "" {
		t.Error("Expected session to be cleared")
	}
	if _, err := c.SendMessage("again"); !errors.Is(err, ErrNotChatting) {
		t.Errorf("Expected ErrNotChatting, got %v", err)
	}
}

func TestCoordinator_BackToAgents(t *testing.T) {
	c := New(&gatewaytest.Fake{}, testOptions())
	c.EnterAISelection(gateway.Session{SessionID: "s1"})
	first := c.Selection()
	c.EnterChat(pair)

	if err := c.BackToAgents(); err != nil {
		t.Fatalf("BackToAgents failed: %v", err)
	}
	if c.State() != AISelection {
		t.Errorf("Expected AISelection, got %v", c.State())
	}
	if c.Selection() == first {
		t.Error("Expected a fresh selection controller")
	}
	if c.Session().SessionID != "s1" {
		t.Error("Expected session to be kept")
	}
	if err := c.EnterChat(pair); err != nil {
		t.Errorf("Expected to re-enter chat, got %v", err)
	}
}

func TestCoordinator_Start(t *testing.T) {
	tests := []struct {
		name    string
		health  func(ctx context.Context) (gateway.HealthStatus, error)
		wantErr bool
	}{
		{"healthy", func(ctx context.Context) (gateway.HealthStatus, error) {
			return gateway.HealthStatus{Status: "healthy"}, nil
		}, false},
		{"unhealthy", func(ctx context.Context) (gateway.HealthStatus, error) {
			return gateway.HealthStatus{Status: "degraded"}, nil
		}, true},
		{"unreachable", func(ctx context.Context) (gateway.HealthStatus, error) {
			return gateway.HealthStatus{}, errors.New("connection refused")
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&gatewaytest.Fake{HealthFn: tt.health}, testOptions())
			err := c.Start(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil {
				var initErr *InitError
				if !errors.As(err, &initErr) {
					t.Errorf("Expected *InitError, got %T", err)
				}
			}
		})
	}
}

func TestCoordinator_ClearChat(t *testing.T) {
	c := New(&gatewaytest.Fake{}, testOptions())
	if err := c.ClearChat(); !errors.Is(err, ErrNotChatting) {
		t.Errorf("Expected ErrNotChatting outside chat, got %v", err)
	}

	c.EnterAISelection(gateway.Session{SessionID: "s1"})
	c.EnterChat(pair)
	c.Board().AppendUser("hello")

	if err := c.ClearChat(); err != nil {
		t.Fatalf("ClearChat failed: %v", err)
	}
	if n := len(c.Board().Column("ai-1").Entries); n != 0 {
		t.Errorf("Expected empty transcript, got %d entries", n)
	}
	if c.Board().Column("ai-2").Agent.Key != "b" {
		t.Error("Expected agents to survive a clear")
	}
}
