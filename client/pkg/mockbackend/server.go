// Package mockbackend is an in-memory implementation of the chatbot relay
// used for local development and tests.
package mockbackend

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bryantinsley/arena/client/pkg/gateway"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// BasePath is where the API is mounted.
const BasePath = "/chatbot"

type sessionState struct {
	gateway.Session
	selected []string
}

type jobState struct {
	sessionID string
	status    string
	total     int
	responses map[string]string
	metadata  map[string]gateway.ResponseMetadata
}

// Server holds sessions and jobs in memory. Safe for concurrent use.
type Server struct {
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	agents   []Agent
	sessions map[string]*sessionState
	jobs     map[string]*jobState
	timers   []*time.Timer
	closed   bool
}

// Option configures a Server.
type Option func(*Server)

// WithAgents replaces the agent catalog.
func WithAgents(agents []Agent) Option {
	return func(s *Server) {
		s.agents = agents
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server with DefaultAgents unless overridden.
func New(opts ...Option) *Server {
	s := &Server{
		logger:   slog.Default(),
		now:      time.Now,
		agents:   DefaultAgents(),
		sessions: make(map[string]*sessionState),
		jobs:     make(map[string]*jobState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route(BasePath, func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleSessions)
		r.Post("/ai-selection", s.handleSelection)
		r.Post("/chat/start", s.handleChatStart)
		r.Get("/chat/status/{requestID}", s.handleChatStatus)
	})
	return r
}

// Close stops pending agent timers.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("mock backend request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"detail": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a {"detail": ...} error response.
func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, gateway.HealthStatus{Status: "healthy"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := make([]gateway.Session, 0, len(s.sessions))
	for _, st := range s.sessions {
		list = append(list, st.Session)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt.Time)
	})
	JSON(w, http.StatusOK, map[string]any{"sessions": list})
}

type sessionRequest struct {
	Action       string `json:"action"`
	Name         string `json:"name"`
	ProjectTitle string `json:"project_title"`
	SessionID    string `json:"session_id"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Action {
	case "create":
		name := strings.TrimSpace(req.Name)
		title := strings.TrimSpace(req.ProjectTitle)
		if name == "" || title == "" {
			Error(w, http.StatusBadRequest, "Name and project title are required")
			return
		}
		s.mu.Lock()
		for _, st := range s.sessions {
			if strings.EqualFold(st.ProjectTitle, title) {
				s.mu.Unlock()
				Error(w, http.StatusBadRequest, "Project title already exists")
				return
			}
		}
		id := uuid.NewString()
		s.sessions[id] = &sessionState{Session: gateway.Session{
			SessionID:    id,
			Name:         name,
			ProjectTitle: title,
			CreatedAt:    gateway.Timestamp{Time: s.now().UTC()},
		}}
		s.mu.Unlock()
		JSON(w, http.StatusOK, gateway.SessionResult{Success: true, SessionID: id})

	case "select":
		s.mu.Lock()
		st, ok := s.sessions[req.SessionID]
		if ok {
			st.selected = nil
		}
		s.mu.Unlock()
		if !ok {
			Error(w, http.StatusNotFound, "Session not found")
			return
		}
		JSON(w, http.StatusOK, gateway.SessionResult{Success: true, SessionID: req.SessionID})

	default:
		Error(w, http.StatusBadRequest, "Unknown action")
	}
}

type selectionRequest struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	AgentKey  string `json:"agent_key"`
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[req.SessionID]
	if !ok {
		Error(w, http.StatusNotFound, "Session not found")
		return
	}

	switch req.Action {
	case "get_available":
		JSON(w, http.StatusOK, gateway.SelectionResult{Success: true, AvailableAgents: s.catalogLocked("")})

	case "select_first":
		if _, ok := s.agentLocked(req.AgentKey); !ok {
			Error(w, http.StatusBadRequest, "Invalid agent selection")
			return
		}
		st.selected = []string{req.AgentKey}
		JSON(w, http.StatusOK, gateway.SelectionResult{Success: true})

	case "get_second_options":
		if len(st.selected) == 0 {
			Error(w, http.StatusBadRequest, "First agent not selected")
			return
		}
		JSON(w, http.StatusOK, gateway.SelectionResult{Success: true, AvailableAgents: s.catalogLocked(st.selected[0])})

	case "select_second":
		if _, ok := s.agentLocked(req.AgentKey); !ok || len(st.selected) != 1 || st.selected[0] == req.AgentKey {
			Error(w, http.StatusBadRequest, "Invalid agent selection")
			return
		}
		st.selected = append(st.selected, req.AgentKey)
		JSON(w, http.StatusOK, gateway.SelectionResult{
			Success:              true,
			ReadyForConversation: true,
			SelectedAgents:       gateway.AgentKeys{st.selected[0], st.selected[1]},
		})

	default:
		Error(w, http.StatusBadRequest, "Unknown action")
	}
}

func (s *Server) catalogLocked(exclude string) []gateway.AgentDescriptor {
	out := make([]gateway.AgentDescriptor, 0, len(s.agents))
	for _, a := range s.agents {
		if a.Key != exclude {
			out = append(out, a.AgentDescriptor)
		}
	}
	return out
}

func (s *Server) agentLocked(key string) (Agent, bool) {
	for _, a := range s.agents {
		if a.Key == key {
			return a, true
		}
	}
	return Agent{}, false
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleChatStart(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[req.SessionID]
	if !ok {
		Error(w, http.StatusNotFound, "Session not found")
		return
	}
	if len(st.selected) != 2 {
		Error(w, http.StatusBadRequest, "AI agents not selected")
		return
	}

	requestID := ulid.Make().String()
	job := &jobState{
		sessionID: req.SessionID,
		status:    gateway.StatusProcessing,
		total:     len(st.selected),
		responses: make(map[string]string),
		metadata:  make(map[string]gateway.ResponseMetadata),
	}
	s.jobs[requestID] = job

	for _, key := range st.selected {
		agent, _ := s.agentLocked(key)
		if agent.Behavior == Silent {
			continue
		}
		message := req.Message
		started := s.now()
		s.timers = append(s.timers, time.AfterFunc(agent.Delay, func() {
			s.complete(requestID, agent, message, started)
		}))
	}

	s.logger.Info("mock chat started", "request_id", requestID, "session_id", req.SessionID, "agents", st.selected)
	JSON(w, http.StatusOK, gateway.ChatStart{RequestID: requestID})
}

func (s *Server) complete(requestID string, agent Agent, message string, started time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	job, ok := s.jobs[requestID]
	if !ok {
		return
	}

	elapsed := float64(s.now().Sub(started).Milliseconds()) / 1000
	md := gateway.ResponseMetadata{
		DisplayName:           agent.DisplayName,
		ProcessingTimeSeconds: elapsed,
		Model:                 agent.Name,
		AgentKey:              agent.Key,
	}
	var text string
	if agent.Behavior == Fail {
		text = "Error generating response: simulated provider failure"
		md.Error = true
	} else {
		text = agent.reply(message)
		md.CostUSD = agent.cost(text)
	}

	job.responses[agent.Key] = text
	job.metadata[agent.Key] = md
	if len(job.responses) >= job.total {
		job.status = gateway.StatusCompleted
	}
}

func (s *Server) handleChatStatus(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")

	s.mu.Lock()
	job, ok := s.jobs[requestID]
	if !ok {
		s.mu.Unlock()
		Error(w, http.StatusNotFound, "Request not found")
		return
	}
	resp := gateway.ChatStatus{
		Status:          job.status,
		CompletedAgents: len(job.responses),
		TotalAgents:     job.total,
		Responses:       make(map[string]string, len(job.responses)),
		Metadata:        make(map[string]gateway.ResponseMetadata, len(job.metadata)),
	}
	for k, v := range job.responses {
		resp.Responses[k] = v
	}
	for k, v := range job.metadata {
		resp.Metadata[k] = v
	}
	s.mu.Unlock()

	JSON(w, http.StatusOK, resp)
}
