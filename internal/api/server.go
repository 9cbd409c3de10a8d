// Package api exposes the HTTP interface for the monitoring service.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/a3cim/floormon/internal/auth"
	"github.com/a3cim/floormon/internal/clock"
	"github.com/a3cim/floormon/internal/journal"
	"github.com/a3cim/floormon/internal/session"
	"github.com/a3cim/floormon/internal/track"
)

// maxNameLen bounds station/WIP identifiers; anything longer is garbage from
// a misconfigured uploader.
const maxNameLen = 200

// Options collects the server's collaborators.
type Options struct {
	Board    *track.Board
	Journal  *journal.Store
	Sessions *session.Manager
	Auth     auth.Authenticator
	Clock    clock.Clock
	Live     http.Handler
	Metrics  http.Handler
	Logger   *zap.Logger
}

// Server wires HTTP handlers to the board, journal, and session stores.
type Server struct {
	router   chi.Router
	board    *track.Board
	journal  *journal.Store
	sessions *session.Manager
	auth     auth.Authenticator
	clock    clock.Clock
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		board:    opts.Board,
		journal:  opts.Journal,
		sessions: opts.Sessions,
		auth:     opts.Auth,
		clock:    opts.Clock,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if opts.Live != nil {
		r.Method(http.MethodGet, "/ws", opts.Live)
	}

	r.Route("/api", func(r chi.Router) {
		// The live channel stays outside this group: TimeoutHandler cannot
		// hijack connections.
		r.Use(timeoutMiddleware(60 * time.Second))
		r.Post("/upload_station/{station_name}", s.uploadStation)
		r.Post("/upload_wip/{wip_name}", s.uploadWIP)
		r.Get("/tasks", s.getTasks)
		r.Get("/status", s.getStatus)

		r.Post("/login", s.login)
		r.Post("/logout", s.logout)
		r.Get("/session", s.checkSession)

		r.Route("/records/{record_id}/progress", func(r chi.Router) {
			r.Use(s.sessionGuard)
			r.Get("/", s.getProgressHistory)
			r.Post("/", s.addProgressEntry)
			r.Delete("/{timestamp}", s.removeProgressEntry)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w,http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// State is in memory after startup load; nothing downstream to probe.
	writeJSON(s.logger, w,http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) uploadStation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "station_name")
	if !validName(name) {
		writeError(s.logger, w,http.StatusBadRequest, "invalid station name")
		return
	}
	s.board.IngestStation(name)
	writeJSON(s.logger, w,http.StatusOK, uploadResponse{Success: true, Message: name + " completed"})
}

func (s *Server) uploadWIP(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "wip_name")
	if !validName(name) {
		writeError(s.logger, w,http.StatusBadRequest, "invalid wip name")
		return
	}
	s.board.IngestWIP(name)
	writeJSON(s.logger, w,http.StatusOK, uploadResponse{Success: true, Message: name + " completed"})
}

func (s *Server) getTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w,http.StatusOK, s.board.Tasks())
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.board.Status()
	writeJSON(s.logger, w,http.StatusOK, statusResponse{
		TaskProgress:  snap.TaskProgress,
		WIPProgress:   snap.WIPProgress,
		TaskRoundInfo: snap.TaskRoundInfo,
		WIPRoundInfo:  snap.WIPRoundInfo,
		Timestamp:     s.clock.Now(),
	})
}

type uploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type statusResponse struct {
	TaskProgress  track.Progress  `json:"task_progress"`
	WIPProgress   track.Progress  `json:"wip_progress"`
	TaskRoundInfo track.RoundInfo `json:"task_round_info"`
	WIPRoundInfo  track.RoundInfo `json:"wip_round_info"`
	Timestamp     time.Time       `json:"timestamp"`
}

func validName(name string) bool {
	return name != "" && len(name) <= maxNameLen
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
