// Package sessions lists, creates and resumes backend sessions.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bryantinsley/arena/client/pkg/gateway"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrSessionNotFound is returned when the backend refuses a selection.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCreateRejected is returned when the backend answers success=false.
	ErrCreateRejected = errors.New("session creation rejected")
)

// ValidationError reports a field that failed local checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Controller owns the session list shown on the first screen.
type Controller struct {
	api    gateway.API
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions []gateway.Session
}

// New creates a session controller.
func New(api gateway.API, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		api:    api,
		logger: logger,
		now:    time.Now,
	}
}

// ListSessions fetches sessions, newest first. An empty list is not an error.
func (c *Controller) ListSessions(ctx context.Context) ([]gateway.Session, error) {
	list, err := c.api.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	sorted := make([]gateway.Session, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt.Time)
	})

	c.mu.Lock()
	c.sessions = sorted
	c.mu.Unlock()

	c.logger.Debug("sessions loaded", "count", len(sorted))
	return Clone(sorted), nil
}

// Sessions returns the last loaded list.
func (c *Controller) Sessions() []gateway.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Clone(c.sessions)
}

// TitleTaken reports whether a cached session already uses projectTitle,
// ignoring case and surrounding whitespace. Advisory only.
func (c *Controller) TitleTaken(projectTitle string) bool {
	title := strings.TrimSpace(projectTitle)
	if title == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.sessions {
		if strings.EqualFold(strings.TrimSpace(s.ProjectTitle), title) {
			return true
		}
	}
	return false
}

// Validate checks the create form without touching the network.
func Validate(name, projectTitle string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(projectTitle) == "" {
		return &ValidationError{Field: "project_title", Message: "project title is required"}
	}
	return nil
}

// CreateSession validates and registers a new session.
func (c *Controller) CreateSession(ctx context.Context, name, projectTitle string) (gateway.Session, error) {
	if err := Validate(name, projectTitle); err != nil {
		return gateway.Session{}, err
	}
	name = strings.TrimSpace(name)
	projectTitle = strings.TrimSpace(projectTitle)

	res, err := c.api.CreateSession(ctx, name, projectTitle)
	if err != nil {
		return gateway.Session{}, err
	}
	if !res.Success || res.SessionID == "" {
		return gateway.Session{}, ErrCreateRejected
	}

	session := gateway.Session{
		SessionID:    res.SessionID,
		Name:         name,
		ProjectTitle: projectTitle,
		CreatedAt:    gateway.Timestamp{Time: c.now().UTC()},
	}

	c.mu.Lock()
	c.sessions = append([]gateway.Session{session}, c.sessions...)
	c.mu.Unlock()

	c.logger.Info("session created", "session_id", session.SessionID, "project_title", projectTitle)
	return session, nil
}

// SelectSession confirms an existing session with the backend.
func (c *Controller) SelectSession(ctx context.Context, sessionID string) (gateway.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return gateway.Session{}, &ValidationError{Field: "session_id", Message: "no session selected"}
	}

	res, err := c.api.SelectSession(ctx, sessionID)
	if err != nil {
		return gateway.Session{}, err
	}
	if !res.Success {
		return gateway.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if res.SessionID != "" {
		sessionID = res.SessionID
	}

	session := gateway.Session{SessionID: sessionID}
	c.mu.RLock()
	for _, s := range c.sessions {
		if s.SessionID == sessionID {
			session = s
			break
		}
	}
	c.mu.RUnlock()

	c.logger.Info("session selected", "session_id", sessionID)
	return session, nil
}

// Clone copies a session slice.
func Clone(in []gateway.Session) []gateway.Session {
	out := make([]gateway.Session, len(in))
	copy(out, in)
	return out
}
