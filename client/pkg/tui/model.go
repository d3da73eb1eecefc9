// Package tui is the terminal front end: session list, agent picker and
// the side-by-side chat.
package tui

import (
	"context"
	"log/slog"

	"github.com/bryantinsley/arena/client/pkg/board"
	"github.com/bryantinsley/arena/client/pkg/chat"
	"github.com/bryantinsley/arena/client/pkg/coordinator"
	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/ui/columns"
	"github.com/bryantinsley/arena/client/pkg/ui/components"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type screen int

const (
	screenSessions screen = iota
	screenNewSession
	screenAgents
	screenChat
)

func (s screen) String() string {
	switch s {
	case screenSessions:
		return "sessions"
	case screenNewSession:
		return "new session"
	case screenAgents:
		return "agents"
	case screenChat:
		return "chat"
	default:
		return "unknown"
	}
}

const (
	defaultWidth  = 100
	defaultHeight = 30
	headerRows    = 3
	footerRows    = 2
)

// Options configures the UI.
type Options struct {
	// MarkdownStyle is a glamour style name or JSON style path.
	MarkdownStyle string
	Mouse         bool
	Headless      bool
	Logger        *slog.Logger
	// InitErr, when set, starts the UI on the fatal takeover screen.
	InitErr error
}

type model struct {
	ctx    context.Context
	coord  *coordinator.Coordinator
	logger *slog.Logger

	screen        screen
	width, height int
	fatal         error
	notice        string
	loading       bool

	// sessions
	sessionList   []gateway.Session
	sessionCursor int

	// new session form
	nameInput  textinput.Model
	titleInput textinput.Model
	formErr    string
	titleTaken bool

	// agents
	agentCursor int

	// chat
	input   textinput.Model
	grid    *columns.Grid
	spinner spinner.Model
	sending bool
	sendSeq int
	lastJob *chat.Job

	events      <-chan board.Event
	unsubscribe func()

	help       help.Model
	dispatcher *components.ClickDispatcher
}

func initialModel(ctx context.Context, c *coordinator.Coordinator, opts Options) model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := textinput.New()
	name.Placeholder = "Your name"
	name.CharLimit = 80
	title := textinput.New()
	title.Placeholder = "Project title"
	title.CharLimit = 120

	input := textinput.New()
	input.Placeholder = "Ask both agents something..."
	input.CharLimit = 4000

	m := model{
		ctx:        ctx,
		coord:      c,
		logger:     logger,
		screen:     screenSessions,
		width:      defaultWidth,
		height:     defaultHeight,
		fatal:      opts.InitErr,
		loading:    true,
		nameInput:  name,
		titleInput: title,
		input:      input,
		grid:       columns.NewGrid(columns.NewRenderer(opts.MarkdownStyle)),
		spinner:    spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		help:       help.New(),
		dispatcher: components.NewClickDispatcher(nil),
	}
	if c != nil {
		m.events, m.unsubscribe = c.Board().Subscribe()
	} else {
		m.unsubscribe = func() {}
	}
	m.layout()
	return m
}

func (m model) Init() tea.Cmd {
	if m.fatal != nil || m.coord == nil {
		return nil
	}
	return tea.Batch(
		checkHealth(m.ctx, m.coord),
		waitForBoardEvent(m.events),
	)
}

// layout resizes size-dependent widgets.
func (m *model) layout() {
	m.help.Width = m.width
	m.input.Width = max(m.width-6, 10)
	m.grid.SetOrigin(0, headerRows)
	m.grid.SetSize(m.width, m.chatGridHeight())
}

// bodyHeight is the space between header and footer.
func (m model) bodyHeight() int {
	return max(m.height-headerRows-footerRows, 1)
}

func (m model) chatGridHeight() int {
	return max(m.bodyHeight()-2, 6)
}
