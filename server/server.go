package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/graphicsoft-com/RHA-simulation/core"
	"github.com/graphicsoft-com/RHA-simulation/logging"
	"github.com/graphicsoft-com/RHA-simulation/room"
)

const (
	defaultAddr             = ":3001"
	defaultTranscriptsLimit = 10
	maxTranscriptsLimit     = 100
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address.
	Addr string

	// Store serves the transcripts and status endpoints.
	Store core.SessionStore

	// Hub handles websocket upgrades on /ws. Nil disables the route.
	Hub http.Handler

	// MetricsHandler serves /metrics. Defaults to the global Prometheus
	// handler; nil after explicit override disables the route.
	MetricsHandler http.Handler

	// AllowedOrigins for CORS. Defaults to any origin.
	AllowedOrigins []string

	// Logger for request handling problems.
	Logger logging.Logger
}

// Server is the HTTP API around a room registry.
type Server struct {
	registry *room.Registry
	store    core.SessionStore
	logger   logging.Logger
	handler  http.Handler
	addr     string
	started  time.Time
}

// New builds the server and its route tree.
func New(registry *room.Registry, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:           defaultAddr,
		AllowedOrigins: []string{"*"},
		MetricsHandler: promhttp.Handler(),
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		registry: registry,
		store:    opts.Store,
		logger:   opts.Logger,
		addr:     opts.Addr,
		started:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/simulation/start/{roomID}", s.handleStart)
		r.Post("/simulation/stop/{roomID}", s.handleStop)
		r.Get("/simulation/status", s.handleStatus)
		r.Get("/transcripts/{id}", s.handleTranscripts)
		r.Get("/transcripts/{id}/messages", s.handleMessages)
	})
	if opts.Hub != nil {
		r.Handle("/ws", opts.Hub)
	}
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}
	s.handler = r

	return s
}

// Handler returns the route tree, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests with a short grace period.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) respondData(w http.ResponseWriter, status int, data any) {
	s.writeJSON(w, status, envelope{Success: true, Data: data})
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, envelope{Success: false, Error: msg})
}

// respondDomainError maps the orchestration sentinels onto HTTP statuses.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidRoom):
		s.respondError(w, http.StatusBadRequest, "unknown room")
	case errors.Is(err, core.ErrAlreadyRunning):
		s.respondError(w, http.StatusConflict, "simulation already running")
	case errors.Is(err, core.ErrNotRunning):
		s.respondError(w, http.StatusConflict, "simulation not running")
	case errors.Is(err, core.ErrSessionNotFound):
		s.respondError(w, http.StatusNotFound, "session not found")
	default:
		s.logger.Error("request failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptimeSeconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	sess, err := s.registry.Start(r.Context(), roomID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondData(w, http.StatusCreated, sess)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if err := s.registry.Stop(roomID); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondData(w, http.StatusOK, map[string]string{"roomId": roomID, "status": "stopping"})
}

// roomStatus is one row of the dashboard status payload.
type roomStatus struct {
	RoomID         string `json:"roomId"`
	Name           string `json:"name"`
	IsActive       bool   `json:"isActive"`
	SessionID      string `json:"sessionId,omitempty"`
	PatientProfile string `json:"patientProfile,omitempty"`
	MessageCount   int    `json:"messageCount"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	running := s.registry.Snapshot()
	rooms := s.registry.Rooms()

	out := make([]roomStatus, 0, len(rooms))
	for _, rm := range rooms {
		st := roomStatus{RoomID: rm.ID, Name: rm.Name, IsActive: running[rm.ID]}
		if st.IsActive && s.store != nil {
			sess, err := s.store.ActiveSession(r.Context(), rm.ID)
			if err != nil {
				s.logger.Warn("failed to load active session", "room_id", rm.ID, "error", err)
			} else if sess != nil {
				st.SessionID = sess.ID
				st.PatientProfile = sess.PatientProfile
				st.MessageCount = sess.MessageCount
			}
		}
		out = append(out, st)
	}
	s.respondData(w, http.StatusOK, map[string]any{"rooms": out})
}

func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "transcripts unavailable")
		return
	}
	roomID := chi.URLParam(r, "id")
	if _, ok := s.registry.Room(roomID); !ok {
		s.respondDomainError(w, core.ErrInvalidRoom)
		return
	}

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", defaultTranscriptsLimit)
	if limit < 1 {
		limit = defaultTranscriptsLimit
	}
	if limit > maxTranscriptsLimit {
		limit = maxTranscriptsLimit
	}

	sessions, total, err := s.store.SessionsByRoom(r.Context(), roomID, page, limit)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	s.respondData(w, http.StatusOK, map[string]any{
		"sessions":   sessions,
		"page":       page,
		"limit":      limit,
		"total":      total,
		"totalPages": totalPages,
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "transcripts unavailable")
		return
	}
	sessionID := chi.URLParam(r, "id")

	sess, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	msgs, err := s.store.MessagesBySession(r.Context(), sessionID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondData(w, http.StatusOK, map[string]any{
		"session":  sess,
		"messages": msgs,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
