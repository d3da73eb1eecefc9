// Package chat sends one message to two agents and polls until both answer.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bryantinsley/arena/client/pkg/board"
	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/selection"
)

const (
	DefaultPollInterval = 200 * time.Millisecond
	DefaultTimeout      = 60 * time.Second

	// Reported latency for a slot that never answered.
	timeoutProcessingSeconds = 30
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a message is already in flight")
	ErrInvalidPair  = errors.New("chat requires two distinct agents")
)

// State is the controller's per-message phase.
type State int

const (
	Idle State = iota
	Sending
	AwaitingBothResponses
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case AwaitingBothResponses:
		return "awaiting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Recorder receives every finished job.
type Recorder interface {
	Record(ctx context.Context, job Job) error
}

// Options tunes the poll loop.
type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
	Recorder     Recorder
	Logger       *slog.Logger
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Controller runs at most one job at a time against a fixed agent pair.
type Controller struct {
	api       gateway.API
	board     *board.Board
	sessionID string
	pair      selection.Pair
	opts      Options

	mu    sync.Mutex
	state State
}

// New binds a controller to a session and a finalized pair, and labels the
// board columns with the pair.
func New(api gateway.API, b *board.Board, sessionID string, pair selection.Pair, opts Options) (*Controller, error) {
	if !pair.Valid() {
		return nil, ErrInvalidPair
	}
	b.SetAgents(pair.First, pair.Second)
	return &Controller{
		api:       api,
		board:     b,
		sessionID: sessionID,
		pair:      pair,
		opts:      opts.withDefaults(),
	}, nil
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a job is in flight.
func (c *Controller) Busy() bool {
	return c.State() != Idle
}

// Pair returns the agents bound to the columns.
func (c *Controller) Pair() selection.Pair {
	return c.pair
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// SendMessage submits text and blocks until both slots are terminal, the
// budget runs out, or ctx is cancelled. Only ErrEmptyMessage and ErrBusy are
// returned as errors; every other failure lands in the job's slots.
func (c *Controller) SendMessage(ctx context.Context, text string) (Job, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Job{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return Job{}, ErrBusy
	}
	c.state = Sending
	c.mu.Unlock()
	defer c.setState(Idle)

	job := &Job{
		SessionID: c.sessionID,
		Message:   text,
		CreatedAt: c.opts.Now(),
		Slots: [2]Slot{
			{Column: board.Left, Agent: c.pair.First},
			{Column: board.Right, Agent: c.pair.Second},
		},
	}
	log := c.opts.Logger.With("session_id", c.sessionID)

	job.boardGen = c.board.Generation()
	c.board.AppendUser(text)
	for _, col := range board.Columns {
		c.board.SetStatus(col, board.StatusProcessing)
		c.board.AppendPlaceholder(col)
	}

	// Now is injectable for timestamps only; the budget runs on the real clock.
	deadline := time.Now().Add(c.opts.Timeout)
	start, err := c.api.StartChat(ctx, c.sessionID, text)
	if err != nil {
		log.Warn("chat start failed", "error", err)
		job.Err = err
		c.failPending(job, err.Error(), gateway.ResponseMetadata{Error: true})
		return c.finish(ctx, job), nil
	}
	job.RequestID = start.RequestID
	log = log.With("request_id", job.RequestID)
	log.Info("chat job started")

	c.setState(AwaitingBothResponses)
	c.poll(ctx, job, deadline, log)
	return c.finish(ctx, job), nil
}

func (c *Controller) poll(ctx context.Context, job *Job, deadline time.Time, log *slog.Logger) {
	pollCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for job.Resolved() < 2 {
		select {
		case <-pollCtx.Done():
			c.expire(ctx, job, log)
			return
		case <-ticker.C:
		}

		st, err := c.api.ChatStatus(pollCtx, job.RequestID)
		if err != nil {
			if pollCtx.Err() != nil {
				c.expire(ctx, job, log)
				return
			}
			log.Warn("chat status poll failed", "error", err)
			job.Err = err
			c.failPending(job, err.Error(), gateway.ResponseMetadata{Error: true})
			return
		}

		c.apply(job, st)
		if st.Completed() {
			break
		}
	}

	if job.Resolved() < 2 {
		// Backend reported completion without an answer for every slot.
		log.Warn("chat job completed with missing responses", "resolved", job.Resolved())
		c.failPending(job, ReasonTimeout, timeoutMetadata())
	}
}

// expire fails unresolved slots after the budget ran out or ctx was cancelled.
func (c *Controller) expire(ctx context.Context, job *Job, log *slog.Logger) {
	if ctx.Err() != nil {
		log.Info("chat job cancelled", "resolved", job.Resolved())
		job.Err = ctx.Err()
		c.failPending(job, ReasonCancelled, gateway.ResponseMetadata{Error: true})
		return
	}
	log.Warn("chat job timed out", "resolved", job.Resolved())
	c.failPending(job, ReasonTimeout, timeoutMetadata())
}

func (c *Controller) apply(job *Job, st gateway.ChatStatus) {
	for i, slot := range job.Slots {
		if slot.Outcome.State != Pending {
			continue
		}
		text, ok := st.Responses[slot.Agent.Key]
		if !ok {
			continue
		}
		md := st.Metadata[slot.Agent.Key]
		if md.DisplayName == "" {
			md.DisplayName = slot.Agent.Label()
		}
		if md.Error {
			c.resolve(job, i, Outcome{State: Failed, Reason: text, Metadata: md})
		} else {
			c.resolve(job, i, Outcome{State: Success, Content: text, Metadata: md})
		}
	}
}

func (c *Controller) failPending(job *Job, reason string, md gateway.ResponseMetadata) {
	for i, slot := range job.Slots {
		if slot.Outcome.State != Pending {
			continue
		}
		m := md
		m.Error = true
		m.DisplayName = slot.Agent.Label()
		m.AgentKey = slot.Agent.Key
		c.resolve(job, i, Outcome{State: Failed, Reason: reason, Metadata: m})
	}
}

func (c *Controller) resolve(job *Job, i int, o Outcome) {
	if !job.resolve(i, o) {
		return
	}
	col := job.Slots[i].Column
	md := o.Metadata
	entry := board.Entry{Role: board.RoleAssistant, Metadata: &md}
	status := board.StatusReady
	if o.State == Failed {
		entry.Content = o.Reason
		entry.Failed = true
		status = board.StatusError
	} else {
		entry.Content = o.Content
	}
	if !c.board.ResolveIn(job.boardGen, col, entry, status) {
		c.opts.Logger.Debug("board cleared, slot not shown",
			"request_id", job.RequestID,
			"column", string(col),
		)
		return
	}
	c.opts.Logger.Debug("slot resolved",
		"request_id", job.RequestID,
		"column", string(col),
		"agent", job.Slots[i].Agent.Key,
		"state", o.State.String(),
	)
}

func (c *Controller) finish(ctx context.Context, job *Job) Job {
	job.FinishedAt = c.opts.Now()
	out := *job
	if c.opts.Recorder != nil {
		if err := c.opts.Recorder.Record(context.WithoutCancel(ctx), out); err != nil {
			c.opts.Logger.Warn("failed to record chat job", "request_id", job.RequestID, "error", err)
		}
	}
	return out
}

// Reset clears the transcript. It is refused while a job is in flight.
func (c *Controller) Reset() error {
	if c.Busy() {
		return ErrBusy
	}
	c.board.Clear()
	return nil
}

func timeoutMetadata() gateway.ResponseMetadata {
	return gateway.ResponseMetadata{
		ProcessingTimeSeconds: timeoutProcessingSeconds,
		CostUSD:               0,
		Error:                 true,
	}
}
