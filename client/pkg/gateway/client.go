// Package gateway is the HTTP client for the chatbot backend relay.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:3000/chatbot"

// API is the backend contract consumed by the controllers.
type API interface {
	Health(ctx context.Context) (HealthStatus, error)
	ListSessions(ctx context.Context) ([]Session, error)
	CreateSession(ctx context.Context, name, projectTitle string) (SessionResult, error)
	SelectSession(ctx context.Context, sessionID string) (SessionResult, error)
	AvailableAgents(ctx context.Context, sessionID string) (SelectionResult, error)
	SelectFirstAgent(ctx context.Context, sessionID, agentKey string) (SelectionResult, error)
	SecondAgentOptions(ctx context.Context, sessionID string) (SelectionResult, error)
	SelectSecondAgent(ctx context.Context, sessionID, agentKey string) (SelectionResult, error)
	StartChat(ctx context.Context, sessionID, message string) (ChatStart, error)
	ChatStatus(ctx context.Context, requestID string) (ChatStatus, error)
}

// Client talks to the backend over HTTP. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client rooted at baseURL (e.g. http://host:3000/chatbot).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type sessionRequest struct {
	Action       string `json:"action"`
	Name         string `json:"name,omitempty"`
	ProjectTitle string `json:"project_title,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

type selectionRequest struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	AgentKey  string `json:"agent_key,omitempty"`
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type sessionList struct {
	Sessions []Session `json:"sessions"`
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "health", nil, &out); err != nil {
		return HealthStatus{}, fmt.Errorf("health: %w", err)
	}
	return out, nil
}

// ListSessions returns all sessions known to the backend.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var out sessionList
	if err := c.do(ctx, http.MethodGet, "sessions", nil, &out); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if out.Sessions == nil {
		return []Session{}, nil
	}
	return out.Sessions, nil
}

// CreateSession registers a new session.
func (c *Client) CreateSession(ctx context.Context, name, projectTitle string) (SessionResult, error) {
	var out SessionResult
	req := sessionRequest{Action: "create", Name: name, ProjectTitle: projectTitle}
	if err := c.do(ctx, http.MethodPost, "sessions", req, &out); err != nil {
		return SessionResult{}, fmt.Errorf("create session: %w", err)
	}
	return out, nil
}

// SelectSession resumes an existing session.
func (c *Client) SelectSession(ctx context.Context, sessionID string) (SessionResult, error) {
	var out SessionResult
	req := sessionRequest{Action: "select", SessionID: sessionID}
	if err := c.do(ctx, http.MethodPost, "sessions", req, &out); err != nil {
		return SessionResult{}, fmt.Errorf("select session: %w", err)
	}
	return out, nil
}

// AvailableAgents returns the full agent catalog for a session.
func (c *Client) AvailableAgents(ctx context.Context, sessionID string) (SelectionResult, error) {
	return c.selection(ctx, "get_available", sessionID, "")
}

// SelectFirstAgent records the slot-one agent.
func (c *Client) SelectFirstAgent(ctx context.Context, sessionID, agentKey string) (SelectionResult, error) {
	return c.selection(ctx, "select_first", sessionID, agentKey)
}

// SecondAgentOptions returns the catalog filtered against the first pick.
func (c *Client) SecondAgentOptions(ctx context.Context, sessionID string) (SelectionResult, error) {
	return c.selection(ctx, "get_second_options", sessionID, "")
}

// SelectSecondAgent records the slot-two agent.
func (c *Client) SelectSecondAgent(ctx context.Context, sessionID, agentKey string) (SelectionResult, error) {
	return c.selection(ctx, "select_second", sessionID, agentKey)
}

func (c *Client) selection(ctx context.Context, action, sessionID, agentKey string) (SelectionResult, error) {
	var out SelectionResult
	req := selectionRequest{SessionID: sessionID, Action: action, AgentKey: agentKey}
	if err := c.do(ctx, http.MethodPost, "ai-selection", req, &out); err != nil {
		return SelectionResult{}, fmt.Errorf("ai-selection %s: %w", action, err)
	}
	return out, nil
}

// StartChat submits a message and returns the job's request id.
func (c *Client) StartChat(ctx context.Context, sessionID, message string) (ChatStart, error) {
	var out ChatStart
	req := chatRequest{SessionID: sessionID, Message: message}
	if err := c.do(ctx, http.MethodPost, "chat/start", req, &out); err != nil {
		return ChatStart{}, fmt.Errorf("start chat: %w", err)
	}
	if out.RequestID == "" {
		return ChatStart{}, fmt.Errorf("start chat: response has no request_id")
	}
	return out, nil
}

// ChatStatus fetches the current state of a job.
func (c *Client) ChatStatus(ctx context.Context, requestID string) (ChatStatus, error) {
	var out ChatStatus
	path := "chat/status/" + url.PathEscape(requestID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return ChatStatus{}, fmt.Errorf("chat status: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("gateway request failed", "method", method, "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("gateway request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
