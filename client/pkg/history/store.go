// Package history keeps a local transcript of finished chat jobs.
package history

import (
	"context"
	"time"

	"github.com/bryantinsley/arena/client/pkg/chat"
)

// Repository stores and lists finished jobs. It satisfies chat.Recorder.
type Repository interface {
	Record(ctx context.Context, job chat.Job) error
	List(ctx context.Context, opts ListOptions) ([]Exchange, error)
	Ping(ctx context.Context) error
	Close() error
}

// ListOptions filters List.
type ListOptions struct {
	SessionID string
	Limit     int
}

// Exchange is one stored message with both answers.
type Exchange struct {
	ID        int64
	RequestID string
	SessionID string
	Message   string
	CreatedAt time.Time
	Elapsed   time.Duration
	Answers   [2]Answer
}

// Answer is one agent's stored outcome.
type Answer struct {
	Column                string
	AgentKey              string
	AgentName             string
	State                 string
	Text                  string
	ProcessingTimeSeconds float64
	CostUSD               float64
}

var _ chat.Recorder = Repository(nil)
