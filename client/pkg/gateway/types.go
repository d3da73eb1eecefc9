package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Job status values reported by chat/status.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// Session is a user/project conversation context owned by the backend.
type Session struct {
	SessionID    string    `json:"session_id"`
	Name         string    `json:"name"`
	ProjectTitle string    `json:"project_title"`
	CreatedAt    Timestamp `json:"created_at"`
}

// AgentDescriptor describes one selectable agent. Prices are per 1K tokens.
type AgentDescriptor struct {
	Key         string  `json:"key"`
	Name        string  `json:"name,omitempty"`
	DisplayName string  `json:"display_name"`
	Description string  `json:"description"`
	InputPrice  float64 `json:"input_price"`
	OutputPrice float64 `json:"output_price"`
}

// Label returns the display name, falling back to the key.
func (a AgentDescriptor) Label() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Key
}

// ResponseMetadata accompanies every agent answer.
type ResponseMetadata struct {
	DisplayName           string  `json:"display_name,omitempty"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	CostUSD               float64 `json:"cost_usd"`
	Error                 bool    `json:"error,omitempty"`
	Model                 string  `json:"model,omitempty"`
	AgentKey              string  `json:"agent_key,omitempty"`
}

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status string `json:"status"`
}

// Healthy reports whether the backend declared itself healthy.
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// SessionResult is the reply to a create or select request.
type SessionResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

// SelectionResult is the reply to every ai-selection action.
type SelectionResult struct {
	Success              bool              `json:"success"`
	AvailableAgents      []AgentDescriptor `json:"available_agents,omitempty"`
	ReadyForConversation bool              `json:"ready_for_conversation,omitempty"`
	SelectedAgents       AgentKeys         `json:"selected_agents,omitempty"`
}

// AgentKeys is the selected_agents list. The backend sends bare keys; older
// builds sent full descriptors, so objects with a "key" field are accepted too.
type AgentKeys []string

// UnmarshalJSON accepts ["a","b"], [{"key":"a",...}, ...] or null.
func (k *AgentKeys) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*k = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("selected_agents: %w", err)
	}
	keys := make(AgentKeys, 0, len(raw))
	for _, item := range raw {
		var key string
		if err := json.Unmarshal(item, &key); err == nil {
			keys = append(keys, key)
			continue
		}
		var desc AgentDescriptor
		if err := json.Unmarshal(item, &desc); err != nil {
			return fmt.Errorf("selected_agents: %w", err)
		}
		if desc.Key == "" {
			return fmt.Errorf("selected_agents: entry without key: %s", item)
		}
		keys = append(keys, desc.Key)
	}
	*k = keys
	return nil
}

// ChatStart is the reply to chat/start.
type ChatStart struct {
	RequestID string `json:"request_id"`
}

// ChatStatus is a snapshot of a running job.
type ChatStatus struct {
	Status          string                      `json:"status"`
	CompletedAgents int                         `json:"completed_agents"`
	TotalAgents     int                         `json:"total_agents"`
	Responses       map[string]string           `json:"responses"`
	Metadata        map[string]ResponseMetadata `json:"metadata"`
}

// Completed reports whether the backend considers the job done.
func (s ChatStatus) Completed() bool {
	return s.Status == StatusCompleted
}

// The backend emits naive ISO timestamps without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp parses the timestamp variants the backend produces.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON accepts RFC3339, naive ISO strings, or null.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

// MarshalJSON writes RFC3339 with nanoseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
