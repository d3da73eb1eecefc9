package components

import tea "github.com/charmbracelet/bubbletea"

// Clickable is implemented by every mouse target on screen.
type Clickable interface {
	Contains(x, y int) bool
	HandleClick(x, y int) tea.Cmd
	Bounds() (x, y, width, height int)
	SetBounds(x, y, width, height int)
}

// Region is the screen rectangle a component was last drawn into. Embed it
// to get Contains, Bounds and SetBounds.
type Region struct {
	X, Y          int
	Width, Height int
}

// Contains reports whether (x, y) falls inside the region. Empty regions
// contain nothing.
func (r *Region) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

func (r *Region) Bounds() (x, y, width, height int) {
	return r.X, r.Y, r.Width, r.Height
}

func (r *Region) SetBounds(x, y, width, height int) {
	r.X, r.Y, r.Width, r.Height = x, y, width, height
}

// ClickDispatcher routes left clicks to the topmost registered target. Views
// rebuild it every frame: Clear, then Register in draw order.
type ClickDispatcher struct {
	targets []Clickable
}

func NewClickDispatcher(targets []Clickable) *ClickDispatcher {
	return &ClickDispatcher{targets: targets}
}

func (d *ClickDispatcher) Register(c Clickable) {
	d.targets = append(d.targets, c)
}

func (d *ClickDispatcher) Clear() {
	d.targets = d.targets[:0]
}

func (d *ClickDispatcher) Len() int {
	return len(d.targets)
}

// Hit returns the target under (x, y), or nil. Later registrations are
// drawn on top and win.
func (d *ClickDispatcher) Hit(x, y int) Clickable {
	for i := len(d.targets) - 1; i >= 0; i-- {
		if d.targets[i].Contains(x, y) {
			return d.targets[i]
		}
	}
	return nil
}

// HandleMouse fires on left-button release only, so a press-drag-release
// that ends elsewhere clicks where it ended.
func (d *ClickDispatcher) HandleMouse(msg tea.MouseMsg) tea.Cmd {
	if msg.Action != tea.MouseActionRelease {
		return nil
	}
	if msg.Button != tea.MouseButtonLeft && msg.Button != tea.MouseButtonNone {
		return nil
	}
	if c := d.Hit(msg.X, msg.Y); c != nil {
		return c.HandleClick(msg.X, msg.Y)
	}
	return nil
}
