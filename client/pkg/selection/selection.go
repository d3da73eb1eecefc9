// Package selection runs the two-step agent picker.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bryantinsley/arena/client/pkg/gateway"
)

// State is the picker's position.
type State int

const (
	NoneSelected State = iota
	FirstSelected
	BothSelected
)

func (s State) String() string {
	switch s {
	case NoneSelected:
		return "none_selected"
	case FirstSelected:
		return "first_selected"
	case BothSelected:
		return "both_selected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrSameAgent     = errors.New("second agent must differ from the first")
	ErrUnknownAgent  = errors.New("agent is not in the catalog")
	ErrNotReady      = errors.New("backend did not confirm the agent pair")
	ErrResetRequired = errors.New("both agents already selected")
	ErrNoFirst       = errors.New("select the first agent before the second")
	ErrNotLoaded     = errors.New("agent catalog is not loaded")
	ErrRejected      = errors.New("backend rejected the selection")
)

// Pair is a finalized, ordered agent pair. First maps to column ai-1.
type Pair struct {
	First  gateway.AgentDescriptor
	Second gateway.AgentDescriptor
}

// Valid reports whether both slots are set and distinct.
func (p Pair) Valid() bool {
	return p.First.Key != "" && p.Second.Key != "" && p.First.Key != p.Second.Key
}

// Controller holds selection state for one session.
type Controller struct {
	api       gateway.API
	sessionID string
	logger    *slog.Logger

	mu            sync.Mutex
	state         State
	catalog       []gateway.AgentDescriptor
	secondOptions []gateway.AgentDescriptor
	first         gateway.AgentDescriptor
	pair          Pair
	loadErr       error
}

// New creates a picker for sessionID.
func New(api gateway.API, sessionID string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{api: api, sessionID: sessionID, logger: logger}
}

// LoadCatalog fetches the slot-one catalog. It may be called again to retry.
func (c *Controller) LoadCatalog(ctx context.Context) ([]gateway.AgentDescriptor, error) {
	res, err := c.api.AvailableAgents(ctx, c.sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.loadErr = err
		c.logger.Warn("agent catalog load failed", "session_id", c.sessionID, "error", err)
		return nil, err
	}
	c.loadErr = nil
	c.catalog = append([]gateway.AgentDescriptor{}, res.AvailableAgents...)
	c.logger.Debug("agent catalog loaded", "count", len(c.catalog))
	return cloneAgents(c.catalog), nil
}

// SelectFirst records the slot-one agent and loads the filtered second list.
func (c *Controller) SelectFirst(ctx context.Context, key string) ([]gateway.AgentDescriptor, error) {
	c.mu.Lock()
	if c.state == BothSelected {
		c.mu.Unlock()
		return nil, ErrResetRequired
	}
	if c.catalog == nil {
		c.mu.Unlock()
		return nil, ErrNotLoaded
	}
	agent, ok := find(c.catalog, key)
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, key)
	}

	res, err := c.api.SelectFirstAgent(ctx, c.sessionID, key)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, key)
	}

	opts, err := c.api.SecondAgentOptions(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}

	second := make([]gateway.AgentDescriptor, 0, len(opts.AvailableAgents))
	for _, a := range opts.AvailableAgents {
		if a.Key != key {
			second = append(second, a)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.first = agent
	c.secondOptions = second
	c.state = FirstSelected
	c.logger.Info("first agent selected", "session_id", c.sessionID, "agent", key)
	return cloneAgents(second), nil
}

// SelectSecond records the slot-two agent. ErrNotReady leaves the picker in
// FirstSelected so the same choice can be retried.
func (c *Controller) SelectSecond(ctx context.Context, key string) (Pair, error) {
	c.mu.Lock()
	if c.state == BothSelected {
		c.mu.Unlock()
		return Pair{}, ErrResetRequired
	}
	if c.state != FirstSelected {
		c.mu.Unlock()
		return Pair{}, ErrNoFirst
	}
	first := c.first
	if key == first.Key {
		c.mu.Unlock()
		return Pair{}, ErrSameAgent
	}
	agent, ok := find(c.secondOptions, key)
	c.mu.Unlock()
	if !ok {
		return Pair{}, fmt.Errorf("%w: %s", ErrUnknownAgent, key)
	}

	res, err := c.api.SelectSecondAgent(ctx, c.sessionID, key)
	if err != nil {
		return Pair{}, err
	}
	if !res.Success {
		return Pair{}, fmt.Errorf("%w: %s", ErrRejected, key)
	}
	if !res.ReadyForConversation {
		c.logger.Warn("agent pair not confirmed", "session_id", c.sessionID, "first", first.Key, "second", key)
		return Pair{}, ErrNotReady
	}

	pair := Pair{First: first, Second: agent}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ordered, ok := c.orderLocked(res.SelectedAgents, first, agent); ok {
		pair = ordered
	}
	c.pair = pair
	c.state = BothSelected
	c.logger.Info("agent pair ready", "session_id", c.sessionID, "first", pair.First.Key, "second", pair.Second.Key)
	return pair, nil
}

// orderLocked maps the backend's selected keys onto the two picks so the
// backend's slot order wins. Unknown or mismatched keys keep the local order.
func (c *Controller) orderLocked(keys gateway.AgentKeys, first, second gateway.AgentDescriptor) (Pair, bool) {
	if len(keys) != 2 {
		return Pair{}, false
	}
	lookup := func(key string) (gateway.AgentDescriptor, bool) {
		switch key {
		case first.Key:
			return first, true
		case second.Key:
			return second, true
		}
		if a, ok := find(c.catalog, key); ok {
			return a, true
		}
		return find(c.secondOptions, key)
	}
	a, okA := lookup(keys[0])
	b, okB := lookup(keys[1])
	if !okA || !okB {
		c.logger.Warn("selected agents not in catalog", "session_id", c.sessionID, "keys", []string(keys))
		return Pair{}, false
	}
	p := Pair{First: a, Second: b}
	if !p.Valid() {
		return Pair{}, false
	}
	return p, true
}

// Reset clears the picks and keeps the loaded catalog.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = NoneSelected
	c.first = gateway.AgentDescriptor{}
	c.secondOptions = nil
	c.pair = Pair{}
}

// State returns the current picker state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Catalog returns the slot-one catalog.
func (c *Controller) Catalog() []gateway.AgentDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAgents(c.catalog)
}

// SecondOptions returns the slot-two catalog.
func (c *Controller) SecondOptions() []gateway.AgentDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAgents(c.secondOptions)
}

// First returns the slot-one agent, if any.
func (c *Controller) First() (gateway.AgentDescriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.first, c.state != NoneSelected
}

// Pair returns the finalized pair once BothSelected.
func (c *Controller) Pair() (Pair, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair, c.state == BothSelected
}

// LoadErr returns the last catalog load failure.
func (c *Controller) LoadErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

func find(list []gateway.AgentDescriptor, key string) (gateway.AgentDescriptor, bool) {
	for _, a := range list {
		if a.Key == key {
			return a, true
		}
	}
	return gateway.AgentDescriptor{}, false
}

func cloneAgents(in []gateway.AgentDescriptor) []gateway.AgentDescriptor {
	if in == nil {
		return nil
	}
	out := make([]gateway.AgentDescriptor, len(in))
	copy(out, in)
	return out
}
