// Package coordinator drives the screen-level state machine:
// session pick, then agent pick, then the side-by-side chat.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bryantinsley/arena/client/pkg/board"
	"github.com/bryantinsley/arena/client/pkg/chat"
	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/selection"
	"github.com/bryantinsley/arena/client/pkg/sessions"
)

// State is the active screen.
type State int

const (
	UserSelection State = iota
	AISelection
	ChatComparison
)

func (s State) String() string {
	switch s {
	case UserSelection:
		return "user_selection"
	case AISelection:
		return "ai_selection"
	case ChatComparison:
		return "chat_comparison"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrTransitionRefused = errors.New("transition refused")
	ErrNotChatting       = errors.New("not in chat comparison")
)

// TransitionError explains a refused transition. The state is unchanged.
type TransitionError struct {
	From, To State
	Reason   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s: %s", e.From, e.To, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrTransitionRefused
}

// InitError is fatal: the UI shows it full screen and only allows quitting.
type InitError struct {
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialization failed (%s): %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Options configures a Coordinator.
type Options struct {
	Chat   chat.Options
	Logger *slog.Logger
}

// Coordinator owns the controllers and the board. Nothing is global.
type Coordinator struct {
	api      gateway.API
	logger   *slog.Logger
	chatOpts chat.Options
	board    *board.Board

	mu         sync.Mutex
	state      State
	session    gateway.Session
	pair       selection.Pair
	sessions   *sessions.Controller
	selection  *selection.Controller
	chat       *chat.Controller
	chatCtx    context.Context
	chatCancel context.CancelFunc
}

// New builds a coordinator in UserSelection.
func New(api gateway.API, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Chat.Logger == nil {
		opts.Chat.Logger = logger
	}
	return &Coordinator{
		api:      api,
		logger:   logger,
		chatOpts: opts.Chat,
		board:    board.New(),
		state:    UserSelection,
		sessions: sessions.New(api, logger),
	}
}

// Start verifies the backend is reachable and healthy.
func (c *Coordinator) Start(ctx context.Context) error {
	h, err := c.api.Health(ctx)
	if err != nil {
		return &InitError{Stage: "health check", Err: err}
	}
	if !h.Healthy() {
		return &InitError{Stage: "health check", Err: fmt.Errorf("backend reported status %q", h.Status)}
	}
	c.logger.Info("backend healthy")
	return nil
}

// State returns the active screen.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Board returns the chat view-model.
func (c *Coordinator) Board() *board.Board {
	return c.board
}

// Sessions returns the session controller.
func (c *Coordinator) Sessions() *sessions.Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions
}

// Selection returns the agent picker, or nil outside AISelection.
func (c *Coordinator) Selection() *selection.Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Chat returns the chat controller, or nil outside ChatComparison.
func (c *Coordinator) Chat() *chat.Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chat
}

// Session returns the active session.
func (c *Coordinator) Session() gateway.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Pair returns the finalized agent pair.
func (c *Coordinator) Pair() selection.Pair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair
}

// EnterAISelection moves UserSelection -> AISelection.
func (c *Coordinator) EnterAISelection(session gateway.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != UserSelection {
		return &TransitionError{From: c.state, To: AISelection, Reason: "a session is already active"}
	}
	if session.SessionID == "" {
		return &TransitionError{From: c.state, To: AISelection, Reason: "session id is empty"}
	}
	c.session = session
	c.selection = selection.New(c.api, session.SessionID, c.logger)
	c.state = AISelection
	c.logger.Info("state changed", "state", c.state.String(), "session_id", session.SessionID)
	return nil
}

// EnterChat moves AISelection -> ChatComparison.
func (c *Coordinator) EnterChat(pair selection.Pair) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != AISelection {
		return &TransitionError{From: c.state, To: ChatComparison, Reason: "agent selection is not active"}
	}
	if c.session.SessionID == "" {
		return &TransitionError{From: c.state, To: ChatComparison, Reason: "no active session"}
	}
	if !pair.Valid() {
		return &TransitionError{From: c.state, To: ChatComparison, Reason: "two distinct agents are required"}
	}

	c.board.Clear()
	ctrl, err := chat.New(c.api, c.board, c.session.SessionID, pair, c.chatOpts)
	if err != nil {
		return &TransitionError{From: c.state, To: ChatComparison, Reason: err.Error()}
	}
	c.chatCtx, c.chatCancel = context.WithCancel(context.Background())
	c.chat = ctrl
	c.pair = pair
	c.state = ChatComparison
	c.logger.Info("state changed", "state", c.state.String(), "first", pair.First.Key, "second", pair.Second.Key)
	return nil
}

// SendMessage forwards to the chat controller under the screen's context, so
// leaving the screen cancels the poll loop.
func (c *Coordinator) SendMessage(text string) (chat.Job, error) {
	c.mu.Lock()
	if c.state != ChatComparison || c.chat == nil {
		c.mu.Unlock()
		return chat.Job{}, ErrNotChatting
	}
	ctrl, ctx := c.chat, c.chatCtx
	c.mu.Unlock()
	return ctrl.SendMessage(ctx, text)
}

// ClearChat empties the transcript without leaving the screen. It is
// refused while a message is in flight.
func (c *Coordinator) ClearChat() error {
	c.mu.Lock()
	ctrl := c.chat
	c.mu.Unlock()
	if ctrl == nil {
		return ErrNotChatting
	}
	return ctrl.Reset()
}

// BackToAgents moves ChatComparison -> AISelection with a fresh picker.
func (c *Coordinator) BackToAgents() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ChatComparison {
		return &TransitionError{From: c.state, To: AISelection, Reason: "chat is not active"}
	}
	c.stopChatLocked()
	c.selection = selection.New(c.api, c.session.SessionID, c.logger)
	c.state = AISelection
	c.logger.Info("state changed", "state", c.state.String())
	return nil
}

// Reset returns to UserSelection from any state, cancelling in-flight work
// and rebuilding every controller.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopChatLocked()
	c.session = gateway.Session{}
	c.selection = nil
	c.sessions = sessions.New(c.api, c.logger)
	c.state = UserSelection
	c.board.SetAgents(gateway.AgentDescriptor{}, gateway.AgentDescriptor{})
	c.logger.Info("state reset", "state", c.state.String())
}

func (c *Coordinator) stopChatLocked() {
	if c.chatCancel != nil {
		c.chatCancel()
	}
	c.chatCancel = nil
	c.chatCtx = nil
	c.chat = nil
	c.pair = selection.Pair{}
	c.board.Clear()
}
