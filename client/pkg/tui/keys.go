package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Up        key.Binding
	Down      key.Binding
	Select    key.Binding
	New       key.Binding
	Reload    key.Binding
	Back      key.Binding
	NextField key.Binding
	Send      key.Binding
	Agents    key.Binding
	Reset     key.Binding
	Clear     key.Binding
	Focus     key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new session")),
	Reload:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	NextField: key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
	Send:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Agents:    key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "change agents")),
	Reset:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "sessions")),
	Clear:     key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
	Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch column")),
	PageUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
	PageDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
}

// helpFor returns the short help shown on each screen.
func helpFor(s screen) []key.Binding {
	switch s {
	case screenSessions:
		return []key.Binding{keys.Up, keys.Down, keys.Select, keys.New, keys.Reload, keys.Quit}
	case screenNewSession:
		return []key.Binding{keys.NextField, keys.Select, keys.Back, keys.ForceQuit}
	case screenAgents:
		return []key.Binding{keys.Up, keys.Down, keys.Select, keys.Reload, keys.Back, keys.Quit}
	case screenChat:
		return []key.Binding{keys.Send, keys.Focus, keys.PageUp, keys.PageDown, keys.Agents, keys.Reset, keys.Clear, keys.ForceQuit}
	default:
		return []key.Binding{keys.Quit}
	}
}
