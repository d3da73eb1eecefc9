package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bryantinsley/arena/client/pkg/board"
	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/bryantinsley/arena/client/pkg/gateway/gatewaytest"
	"github.com/bryantinsley/arena/client/pkg/selection"
)

var testPair = selection.Pair{
	First:  gateway.AgentDescriptor{Key: "a", DisplayName: "Agent A"},
	Second: gateway.AgentDescriptor{Key: "b", DisplayName: "Agent B"},
}

func fastOptions() Options {
	return Options{PollInterval: 5 * time.Millisecond, Timeout: 150 * time.Millisecond}
}

func newController(t *testing.T, fake *gatewaytest.Fake, opts Options) (*Controller, *board.Board) {
	t.Helper()
	b := board.New()
	c, err := New(fake, b, "s1", testPair, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, b
}

func statusWith(status string, responses map[string]string, md map[string]gateway.ResponseMetadata) gateway.ChatStatus {
	return gateway.ChatStatus{Status: status, TotalAgents: 2, CompletedAgents: len(responses), Responses: responses, Metadata: md}
}

func TestSendMessage_PlaceholdersBeforeNetwork(t *testing.T) {
	var b *board.Board
	fake := &gatewaytest.Fake{}
	fake.StartChatFn = func(ctx context.Context, sessionID, message string) (gateway.ChatStart, error) {
		snap := b.Snapshot()
		for _, col := range snap {
			if col.Status != board.StatusProcessing {
				t.Errorf("Expected %s processing before start, got %s", col.ID, col.Status)
			}
			if len(col.Entries) != 2 || !col.Entries[1].Pending {
				t.Errorf("Expected user entry plus one placeholder in %s, got %+v", col.ID, col.Entries)
			}
			if col.Entries[0].Content != "hello" {
				t.Errorf("Expected trimmed user text, got %q", col.Entries[0].Content)
			}
		}
		return gateway.ChatStart{RequestID: "r1"}, nil
	}
	fake.ChatStatusFn = func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
		return statusWith(gateway.StatusCompleted,
			map[string]string{"a": "A says hi", "b": "B says hi"},
			map[string]gateway.ResponseMetadata{"a": {CostUSD: 0.1}, "b": {CostUSD: 0.2}}), nil
	}

	var c *Controller
	c, b = newController(t, fake, fastOptions())
	if _, err := c.SendMessage(context.Background(), "  hello  "); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
}

func TestSendMessage_BothSucceed(t *testing.T) {
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			return statusWith(gateway.StatusCompleted,
				map[string]string{"a": "from a", "b": "from b"},
				map[string]gateway.ResponseMetadata{
					"a": {ProcessingTimeSeconds: 1.1, CostUSD: 0.01},
					"b": {ProcessingTimeSeconds: 2.2, CostUSD: 0.02},
				}), nil
		},
	}
	c, b := newController(t, fake, fastOptions())

	job, err := c.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if c.State() != Idle {
		t.Errorf("Expected Idle after job, got %v", c.State())
	}
	if job.RequestID != "req-1" {
		t.Errorf("Expected request id req-1, got %s", job.RequestID)
	}
	if b.PendingCount() != 0 {
		t.Errorf("Expected no pending placeholders, got %d", b.PendingCount())
	}

	snap := b.Snapshot()
	if snap[0].Entries[1].Content != "from a" || snap[1].Entries[1].Content != "from b" {
		t.Errorf("Expected a in ai-1 and b in ai-2, got %q / %q", snap[0].Entries[1].Content, snap[1].Entries[1].Content)
	}
	for _, col := range snap {
		if col.Status != board.StatusReady {
			t.Errorf("Expected %s ready, got %s", col.ID, col.Status)
		}
	}
	if got := job.TotalCost(); got < 0.0299 || got > 0.0301 {
		t.Errorf("Expected total cost 0.03, got %f", got)
	}
}

func TestSendMessage_PartialThenTimeout(t *testing.T) {
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			return statusWith(gateway.StatusProcessing,
				map[string]string{"a": "from a"},
				map[string]gateway.ResponseMetadata{"a": {ProcessingTimeSeconds: 0.5}}), nil
		},
	}
	c, b := newController(t, fake, fastOptions())

	job, _ := c.SendMessage(context.Background(), "hello")

	if job.Slots[0].Outcome.State != Success {
		t.Errorf("Expected slot a Success, got %v", job.Slots[0].Outcome.State)
	}
	out := job.Slots[1].Outcome
	if out.State != Failed || out.Reason != ReasonTimeout {
		t.Errorf("Expected slot b Failed(%q), got %v(%q)", ReasonTimeout, out.State, out.Reason)
	}
	if out.Metadata.ProcessingTimeSeconds != 30 || out.Metadata.CostUSD != 0 || !out.Metadata.Error {
		t.Errorf("Unexpected timeout metadata: %+v", out.Metadata)
	}

	snap := b.Snapshot()
	if snap[0].Status != board.StatusReady || snap[1].Status != board.StatusError {
		t.Errorf("Expected ready/error, got %s/%s", snap[0].Status, snap[1].Status)
	}
	if c.State() != Idle {
		t.Errorf("Expected Idle, got %v", c.State())
	}
}

func TestSendMessage_DoubleTimeout(t *testing.T) {
	c, b := newController(t, &gatewaytest.Fake{}, fastOptions())

	start := time.Now()
	job, _ := c.SendMessage(context.Background(), "hello")
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected loop to stop near the budget, took %v", elapsed)
	}

	for i, slot := range job.Slots {
		if slot.Outcome.State != Failed || slot.Outcome.Reason != ReasonTimeout {
			t.Errorf("Slot %d: expected Failed(Request timeout), got %v(%q)", i, slot.Outcome.State, slot.Outcome.Reason)
		}
		if slot.Outcome.Metadata.ProcessingTimeSeconds != 30 || slot.Outcome.Metadata.CostUSD != 0 {
			t.Errorf("Slot %d: unexpected metadata %+v", i, slot.Outcome.Metadata)
		}
	}
	if b.PendingCount() != 0 {
		t.Errorf("Expected no pending placeholders, got %d", b.PendingCount())
	}
}

func TestSendMessage_StartFailure(t *testing.T) {
	fake := &gatewaytest.Fake{
		StartChatFn: func(ctx context.Context, sessionID, message string) (gateway.ChatStart, error) {
			return gateway.ChatStart{}, &gateway.APIError{StatusCode: 500, Detail: "backend down"}
		},
	}
	c, b := newController(t, fake, fastOptions())

	job, err := c.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Expected failure to land in slots, got %v", err)
	}
	if job.Err == nil {
		t.Error("Expected job-level error to be set")
	}
	for i, slot := range job.Slots {
		if slot.Outcome.State != Failed || slot.Outcome.Reason != "backend down" {
			t.Errorf("Slot %d: expected Failed(backend down), got %v(%q)", i, slot.Outcome.State, slot.Outcome.Reason)
		}
		if slot.Outcome.Metadata.ProcessingTimeSeconds != 0 || !slot.Outcome.Metadata.Error {
			t.Errorf("Slot %d: unexpected metadata %+v", i, slot.Outcome.Metadata)
		}
	}
	if fake.Calls("ChatStatus") != 0 {
		t.Errorf("Expected no polling after start failure, got %d polls", fake.Calls("ChatStatus"))
	}
	for _, col := range b.Snapshot() {
		if col.Status != board.StatusError {
			t.Errorf("Expected %s error, got %s", col.ID, col.Status)
		}
	}
}

func TestSendMessage_ReentrancyGuard(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	fake := &gatewaytest.Fake{
		StartChatFn: func(ctx context.Context, sessionID, message string) (gateway.ChatStart, error) {
			once.Do(func() { close(started) })
			<-release
			return gateway.ChatStart{RequestID: "r1"}, nil
		},
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			return statusWith(gateway.StatusCompleted,
				map[string]string{"a": "x", "b": "y"}, nil), nil
		},
	}
	c, _ := newController(t, fake, fastOptions())

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.SendMessage(context.Background(), "first")
	}()
	<-started

	if _, err := c.SendMessage(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	if err := c.Reset(); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected Reset to be refused while busy, got %v", err)
	}

	close(release)
	<-done

	if fake.Calls("StartChat") != 1 {
		t.Errorf("Expected exactly one job, got %d", fake.Calls("StartChat"))
	}
}

func TestSendMessage_SlotResolvedOnce(t *testing.T) {
	polls := 0
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			polls++
			switch polls {
			case 1:
				return statusWith(gateway.StatusProcessing, map[string]string{"a": "first answer"}, nil), nil
			case 2:
				return statusWith(gateway.StatusProcessing, map[string]string{"a": "rewritten"}, nil), nil
			default:
				return statusWith(gateway.StatusCompleted,
					map[string]string{"a": "rewritten again", "b": "from b"}, nil), nil
			}
		},
	}
	c, b := newController(t, fake, fastOptions())

	job, _ := c.SendMessage(context.Background(), "hello")
	if job.Slots[0].Outcome.Content != "first answer" {
		t.Errorf("Expected first resolution to stick, got %q", job.Slots[0].Outcome.Content)
	}
	left := b.Column(board.Left)
	if len(left.Entries) != 2 {
		t.Errorf("Expected exactly one assistant entry, got %d entries", len(left.Entries))
	}
	if left.Entries[1].Content != "first answer" {
		t.Errorf("Expected board to keep the first answer, got %q", left.Entries[1].Content)
	}
}

func TestSendMessage_PollErrorFailsUnresolved(t *testing.T) {
	polls := 0
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			polls++
			if polls == 1 {
				return statusWith(gateway.StatusProcessing, map[string]string{"b": "from b"}, nil), nil
			}
			return gateway.ChatStatus{}, errors.New("connection reset")
		},
	}
	c, _ := newController(t, fake, fastOptions())

	job, _ := c.SendMessage(context.Background(), "hello")
	if job.Slots[1].Outcome.State != Success {
		t.Errorf("Expected b to keep its answer, got %v", job.Slots[1].Outcome.State)
	}
	a := job.Slots[0].Outcome
	if a.State != Failed || a.Reason != "connection reset" {
		t.Errorf("Expected a Failed(connection reset), got %v(%q)", a.State, a.Reason)
	}
	if a.Metadata.ProcessingTimeSeconds != 0 || a.Metadata.CostUSD != 0 || !a.Metadata.Error {
		t.Errorf("Unexpected metadata: %+v", a.Metadata)
	}
	if fake.Calls("ChatStatus") != 2 {
		t.Errorf("Expected loop to stop after the error, got %d polls", fake.Calls("ChatStatus"))
	}
}

func TestSendMessage_AgentErrorMetadata(t *testing.T) {
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			return statusWith(gateway.StatusCompleted,
				map[string]string{"a": "Error generating response: throttled", "b": "ok"},
				map[string]gateway.ResponseMetadata{"a": {Error: true}}), nil
		},
	}
	c, b := newController(t, fake, fastOptions())

	job, _ := c.SendMessage(context.Background(), "hello")
	if job.Slots[0].Outcome.State != Failed {
		t.Errorf("Expected agent error to fail the slot, got %v", job.Slots[0].Outcome.State)
	}
	if job.Slots[0].Outcome.Reason != "Error generating response: throttled" {
		t.Errorf("Unexpected reason %q", job.Slots[0].Outcome.Reason)
	}
	if b.Column(board.Left).Status != board.StatusError {
		t.Errorf("Expected ai-1 error status")
	}
}

func TestSendMessage_CompletedWithMissingResponse(t *testing.T) {
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			return statusWith(gateway.StatusCompleted, map[string]string{"a": "only a"}, nil), nil
		},
	}
	c, _ := newController(t, fake, fastOptions())

	job, _ := c.SendMessage(context.Background(), "hello")
	if job.Slots[1].Outcome.Reason != ReasonTimeout {
		t.Errorf("Expected missing slot to fail with %q, got %q", ReasonTimeout, job.Slots[1].Outcome.Reason)
	}
	if fake.Calls("ChatStatus") != 1 {
		t.Errorf("Expected loop to end on completed status, got %d polls", fake.Calls("ChatStatus"))
	}
}

func TestSendMessage_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			cancel()
			return statusWith(gateway.StatusProcessing, nil, nil), nil
		},
	}
	opts := fastOptions()
	opts.Timeout = 10 * time.Second
	c, _ := newController(t, fake, opts)

	job, _ := c.SendMessage(ctx, "hello")
	for i, slot := range job.Slots {
		if slot.Outcome.Reason != ReasonCancelled {
			t.Errorf("Slot %d: expected %q, got %q", i, ReasonCancelled, slot.Outcome.Reason)
		}
	}
	if !errors.Is(job.Err, context.Canceled) {
		t.Errorf("Expected job error context.Canceled, got %v", job.Err)
	}
}

func TestSendMessage_EmptyInput(t *testing.T) {
	fake := &gatewaytest.Fake{}
	c, b := newController(t, fake, fastOptions())

	for _, in := range []string{"", "   ", "\n\t"} {
		if _, err := c.SendMessage(context.Background(), in); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Expected ErrEmptyMessage for %q, got %v", in, err)
		}
	}
	if fake.TotalCalls() != 0 {
		t.Errorf("Expected no network calls, got %d", fake.TotalCalls())
	}
	if len(b.Column(board.Left).Entries) != 0 {
		t.Error("Expected board untouched")
	}
}

type memRecorder struct {
	mu   sync.Mutex
	jobs []Job
	err  error
}

func (r *memRecorder) Record(ctx context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return r.err
}

func TestSendMessage_Recorder(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			return statusWith(gateway.StatusCompleted, map[string]string{"a": "x", "b": "y"}, nil), nil
		},
	}
	opts := fastOptions()
	opts.Recorder = rec
	c, _ := newController(t, fake, opts)

	job, err := c.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Recorder failure must not surface, got %v", err)
	}
	if len(rec.jobs) != 1 || rec.jobs[0].RequestID != job.RequestID {
		t.Errorf("Expected recorder to receive the job, got %+v", rec.jobs)
	}
	if job.FinishedAt.IsZero() {
		t.Error("Expected FinishedAt to be set")
	}
}

func TestNew_RejectsInvalidPair(t *testing.T) {
	pair := selection.Pair{First: testPair.First, Second: testPair.First}
	if _, err := New(&gatewaytest.Fake{}, board.New(), "s1", pair, Options{}); !errors.Is(err, ErrInvalidPair) {
		t.Errorf("Expected ErrInvalidPair, got %v", err)
	}
}

func TestReset_ClearsBoard(t *testing.T) {
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			return statusWith(gateway.StatusCompleted, map[string]string{"a": "x", "b": "y"}, nil), nil
		},
	}
	c, b := newController(t, fake, fastOptions())
	c.SendMessage(context.Background(), "hello")

	if err := c.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	for _, col := range b.Snapshot() {
		if len(col.Entries) != 0 {
			t.Errorf("Expected %s cleared", col.ID)
		}
	}
	if b.Column(board.Left).Agent.Key != "a" {
		t.Error("Expected agents to stay bound after reset")
	}
}

func TestSendMessage_ClearedBoardIgnoresLateOutcomes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var b *board.Board
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			// The user left the screen and a new chat started on the same board.
			b.Clear()
			b.AppendUser("next")
			b.AppendPlaceholder(board.Left)
			b.AppendPlaceholder(board.Right)
			cancel()
			return statusWith(gateway.StatusProcessing, nil, nil), nil
		},
	}
	opts := fastOptions()
	opts.Timeout = 10 * time.Second
	var c *Controller
	c, b = newController(t, fake, opts)

	job, _ := c.SendMessage(ctx, "hello")
	if job.Slots[0].Outcome.Reason != ReasonCancelled {
		t.Errorf("Expected job to record cancellation, got %q", job.Slots[0].Outcome.Reason)
	}
	if got := b.PendingCount(); got != 2 {
		t.Errorf("Expected new job's placeholders untouched, got %d pending", got)
	}
	for _, col := range b.Snapshot() {
		if col.Status != board.StatusIdle {
			t.Errorf("Expected %s status untouched, got %s", col.ID, col.Status)
		}
	}
}

func TestSendMessage_BudgetIgnoresInjectedClock(t *testing.T) {
	fake := &gatewaytest.Fake{
		ChatStatusFn: func(ctx context.Context, requestID string) (gateway.ChatStatus, error) {
			return statusWith(gateway.StatusCompleted,
				map[string]string{"a": "A", "b": "B"},
				map[string]gateway.ResponseMetadata{"a": {}, "b": {}}), nil
		},
	}
	opts := fastOptions()
	past := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	opts.Now = func() time.Time { return past }
	c, _ := newController(t, fake, opts)

	job, err := c.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	for i, slot := range job.Slots {
		if slot.Outcome.State != Success {
			t.Errorf("Slot %d: expected success despite skewed clock, got %v %q", i, slot.Outcome.State, slot.Outcome.Reason)
		}
	}
	if !job.CreatedAt.Equal(past) {
		t.Errorf("Expected injected clock for timestamps, got %v", job.CreatedAt)
	}
}
