package chat

import (
	"fmt"
	"time"

	"github.com/bryantinsley/arena/client/pkg/board"
	"github.com/bryantinsley/arena/client/pkg/gateway"
)

// SlotState is the lifecycle of one agent's answer within a job.
type SlotState int

const (
	Pending SlotState = iota
	Success
	Failed
)

func (s SlotState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Failure reasons produced by the controller itself.
const (
	ReasonTimeout   = "Request timeout"
	ReasonCancelled = "cancelled"
)

// Outcome is a slot's terminal result, or Pending.
type Outcome struct {
	State    SlotState
	Content  string
	Reason   string
	Metadata gateway.ResponseMetadata
}

// Slot binds one agent to one board column for the duration of a job.
type Slot struct {
	Column  board.ColumnID
	Agent   gateway.AgentDescriptor
	Outcome Outcome
}

// Job is one submitted message and its two answers.
type Job struct {
	RequestID  string
	SessionID  string
	Message    string
	CreatedAt  time.Time
	FinishedAt time.Time
	Slots      [2]Slot
	// Err is the job-level failure that failed the remaining slots, if any.
	Err error

	boardGen uint64
}

// Resolved counts terminal slots.
func (j *Job) Resolved() int {
	n := 0
	for _, s := range j.Slots {
		if s.Outcome.State != Pending {
			n++
		}
	}
	return n
}

// resolve sets slot i's outcome once. Later calls are ignored.
func (j *Job) resolve(i int, o Outcome) bool {
	if j.Slots[i].Outcome.State != Pending || o.State == Pending {
		return false
	}
	j.Slots[i].Outcome = o
	return true
}

// Elapsed is the wall time between submit and completion.
func (j Job) Elapsed() time.Duration {
	if j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.CreatedAt)
}

// TotalCost sums the reported cost of both slots.
func (j Job) TotalCost() float64 {
	return j.Slots[0].Outcome.Metadata.CostUSD + j.Slots[1].Outcome.Metadata.CostUSD
}
