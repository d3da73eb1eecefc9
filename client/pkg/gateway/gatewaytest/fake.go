// Package gatewaytest provides an in-process gateway.API for controller tests.
package gatewaytest

import (
	"context"
	"sync"

	"github.com/bryantinsley/arena/client/pkg/gateway"
)

// Fake implements gateway.API with overridable funcs. Unset funcs return
// zero values and a nil error. Calls are counted per method name.
type Fake struct {
	HealthFn             func(ctx context.Context) (gateway.HealthStatus, error)
	ListSessionsFn       func(ctx context.Context) ([]gateway.Session, error)
	CreateSessionFn      func(ctx context.Context, name, projectTitle string) (gateway.SessionResult, error)
	SelectSessionFn      func(ctx context.Context, sessionID string) (gateway.SessionResult, error)
	AvailableAgentsFn    func(ctx context.Context, sessionID string) (gateway.SelectionResult, error)
	SelectFirstAgentFn   func(ctx context.Context, sessionID, agentKey string) (gateway.SelectionResult, error)
	SecondAgentOptionsFn func(ctx context.Context, sessionID string) (gateway.SelectionResult, error)
	SelectSecondAgentFn  func(ctx context.Context, sessionID, agentKey string) (gateway.SelectionResult, error)
	StartChatFn          func(ctx context.Context, sessionID, message string) (gateway.ChatStart, error)
	ChatStatusFn         func(ctx context.Context, requestID string) (gateway.ChatStatus, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ gateway.API = (*Fake)(nil)

func (f *Fake) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

// Calls returns how many times method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *Fake) Health(ctx context.Context) (gateway.HealthStatus, error) {
	f.record("Health")
	if f.HealthFn != nil {
		return f.HealthFn(ctx)
	}
	return gateway.HealthStatus{Status: "healthy"}, nil
}

func (f *Fake) ListSessions(ctx context.Context) ([]gateway.Session, error) {
	f.record("ListSessions")
	if f.ListSessionsFn != nil {
		return f.ListSessionsFn(ctx)
	}
	return []gateway.Session{}, nil
}

func (f *Fake) CreateSession(ctx context.Context, name, projectTitle string) (gateway.SessionResult, error) {
	f.record("CreateSession")
	if f.CreateSessionFn != nil {
		return f.CreateSessionFn(ctx, name, projectTitle)
	}
	return gateway.SessionResult{}, nil
}

func (f *Fake) SelectSession(ctx context.Context, sessionID string) (gateway.SessionResult, error) {
	f.record("SelectSession")
	if f.SelectSessionFn != nil {
		return f.SelectSessionFn(ctx, sessionID)
	}
	return gateway.SessionResult{Success: true, SessionID: sessionID}, nil
}

func (f *Fake) AvailableAgents(ctx context.Context, sessionID string) (gateway.SelectionResult, error) {
	f.record("AvailableAgents")
	if f.AvailableAgentsFn != nil {
		return f.AvailableAgentsFn(ctx, sessionID)
	}
	return gateway.SelectionResult{}, nil
}

func (f *Fake) SelectFirstAgent(ctx context.Context, sessionID, agentKey string) (gateway.SelectionResult, error) {
	f.record("SelectFirstAgent")
	if f.SelectFirstAgentFn != nil {
		return f.SelectFirstAgentFn(ctx, sessionID, agentKey)
	}
	return gateway.SelectionResult{Success: true}, nil
}

func (f *Fake) SecondAgentOptions(ctx context.Context, sessionID string) (gateway.SelectionResult, error) {
	f.record("SecondAgentOptions")
	if f.SecondAgentOptionsFn != nil {
		return f.SecondAgentOptionsFn(ctx, sessionID)
	}
	return gateway.SelectionResult{}, nil
}

func (f *Fake) SelectSecondAgent(ctx context.Context, sessionID, agentKey string) (gateway.SelectionResult, error) {
	f.record("SelectSecondAgent")
	if f.SelectSecondAgentFn != nil {
		return f.SelectSecondAgentFn(ctx, sessionID, agentKey)
	}
	return gateway.SelectionResult{Success: true, ReadyForConversation: true}, nil
}

func (f *Fake) StartChat(ctx context.Context, sessionID, message string) (gateway.ChatStart, error) {
	f.record("StartChat")
	if f.StartChatFn != nil {
		return f.StartChatFn(ctx, sessionID, message)
	}
	return gateway.ChatStart{RequestID: "req-1"}, nil
}

func (f *Fake) ChatStatus(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
	f.record("ChatStatus")
	if f.ChatStatusFn != nil {
		return f.ChatStatusFn(ctx, requestID)
	}
	return gateway.ChatStatus{Status: gateway.StatusProcessing}, nil
}

// Agents returns a small catalog for tests.
func Agents(keys ...string) []gateway.AgentDescriptor {
	out := make([]gateway.AgentDescriptor, 0, len(keys))
	for _, k := range keys {
		out = append(out, gateway.AgentDescriptor{Key: k, DisplayName: "Agent " + k})
	}
	return out
}
