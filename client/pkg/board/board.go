// Package board holds the two-column chat view-model. The chat controller
// writes to it and the terminal UI reads snapshots after each event.
package board

import (
	"sync"

	"github.com/bryantinsley/arena/client/pkg/gateway"
)

// ColumnID identifies a comparison column.
type ColumnID string

const (
	Left  ColumnID = "ai-1"
	Right ColumnID = "ai-2"
)

// Columns lists both columns in display order.
var Columns = [2]ColumnID{Left, Right}

// Index returns 0 for Left and 1 for Right.
func (id ColumnID) Index() int {
	if id == Right {
		return 1
	}
	return 0
}

// Status is a column's header state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Role tags an entry as user input or agent output.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PlaceholderText is shown while an agent is working.
const PlaceholderText = "generating…"

// Entry is one message in a column.
type Entry struct {
	Role     Role
	Content  string
	Metadata *gateway.ResponseMetadata
	Pending  bool
	Failed   bool
}

// Column is one side of the comparison.
type Column struct {
	ID      ColumnID
	Agent   gateway.AgentDescriptor
	Status  Status
	Entries []Entry
}

// EventKind describes what changed.
type EventKind int

const (
	EventAgents EventKind = iota
	EventEntry
	EventResolved
	EventStatus
	EventCleared
)

// Event is a refresh hint. Snapshot is the source of truth.
type Event struct {
	Kind   EventKind
	Column ColumnID
}

const subscriberBuffer = 64

// Board is safe for concurrent use.
type Board struct {
	mu      sync.Mutex
	columns [2]Column
	subs    map[int]chan Event
	nextSub int
	// gen is bumped by Clear so writers holding an older value are ignored.
	gen uint64
}

// New creates an empty board.
func New() *Board {
	b := &Board{subs: make(map[int]chan Event)}
	for i, id := range Columns {
		b.columns[i] = Column{ID: id, Status: StatusIdle}
	}
	return b
}

// Subscribe returns an event channel and a func that closes it. Events are
// dropped for subscribers that fall behind.
func (b *Board) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// publish must be called with mu held.
func (b *Board) publish(ev Event) {
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SetAgents binds the pair to the columns.
func (b *Board) SetAgents(first, second gateway.AgentDescriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.columns[0].Agent = first
	b.columns[1].Agent = second
	b.publish(Event{Kind: EventAgents})
}

// AppendUser adds the user's message to both columns.
func (b *Board) AppendUser(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.columns {
		b.columns[i].Entries = append(b.columns[i].Entries, Entry{Role: RoleUser, Content: text})
		b.publish(Event{Kind: EventEntry, Column: b.columns[i].ID})
	}
}

// AppendPlaceholder adds a pending assistant entry to col.
func (b *Board) AppendPlaceholder(col ColumnID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &b.columns[col.Index()]
	c.Entries = append(c.Entries, Entry{Role: RoleAssistant, Content: PlaceholderText, Pending: true})
	b.publish(Event{Kind: EventEntry, Column: col})
}

// ResolvePlaceholder replaces the newest pending entry in col. It returns
// false if col has no pending entry.
func (b *Board) ResolvePlaceholder(col ColumnID, e Entry) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &b.columns[col.Index()]
	for i := len(c.Entries) - 1; i >= 0; i-- {
		if c.Entries[i].Pending {
			e.Pending = false
			if e.Role == "" {
				e.Role = RoleAssistant
			}
			c.Entries[i] = e
			b.publish(Event{Kind: EventResolved, Column: col})
			return true
		}
	}
	return false
}

// Generation identifies the current transcript. Clear starts a new one.
func (b *Board) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// ResolveIn resolves the newest placeholder in col and sets its status, but
// only while the board is still on generation gen. It returns false when the
// board was cleared since gen or col has no pending entry.
func (b *Board) ResolveIn(gen uint64, col ColumnID, e Entry, s Status) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return false
	}
	c := &b.columns[col.Index()]
	for i := len(c.Entries) - 1; i >= 0; i-- {
		if c.Entries[i].Pending {
			e.Pending = false
			if e.Role == "" {
				e.Role = RoleAssistant
			}
			c.Entries[i] = e
			c.Status = s
			b.publish(Event{Kind: EventResolved, Column: col})
			b.publish(Event{Kind: EventStatus, Column: col})
			return true
		}
	}
	return false
}

// SetStatus updates a column header.
func (b *Board) SetStatus(col ColumnID, s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.columns[col.Index()].Status = s
	b.publish(Event{Kind: EventStatus, Column: col})
}

// Clear drops every entry and resets both statuses. Agents are kept.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	for i := range b.columns {
		b.columns[i].Entries = nil
		b.columns[i].Status = StatusIdle
	}
	b.publish(Event{Kind: EventCleared})
}

// Column returns a copy of one column.
func (b *Board) Column(col ColumnID) Column {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneColumn(b.columns[col.Index()])
}

// Snapshot returns a deep copy of both columns.
func (b *Board) Snapshot() [2]Column {
	b.mu.Lock()
	defer b.mu.Unlock()
	return [2]Column{cloneColumn(b.columns[0]), cloneColumn(b.columns[1])}
}

// PendingCount returns the number of unresolved placeholders across columns.
func (b *Board) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.columns {
		for _, e := range c.Entries {
			if e.Pending {
				n++
			}
		}
	}
	return n
}

func cloneColumn(c Column) Column {
	out := c
	if c.Entries != nil {
		out.Entries = make([]Entry, len(c.Entries))
		for i, e := range c.Entries {
			if e.Metadata != nil {
				md := *e.Metadata
				e.Metadata = &md
			}
			out.Entries[i] = e
		}
	}
	return out
}
