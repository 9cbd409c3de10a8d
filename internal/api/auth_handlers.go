package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type logoutRequest struct {
	Username string `json:"username"`
}

// login handles POST /api/login. Every authentication failure, including an
// unreachable directory, reads the same to the client.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || s.sessions == nil {
		writeError(s.logger, w,http.StatusServiceUnavailable, "authentication unavailable")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w,http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(s.logger, w,http.StatusBadRequest, "username and password required")
		return
	}
	if err := s.auth.Authenticate(r.Context(), req.Username, req.Password); err != nil {
		writeJSON(s.logger, w,http.StatusUnauthorized, map[string]any{
			"success": false,
			"message": "invalid credentials",
		})
		return
	}
	sess := s.sessions.Create(req.Username)
	writeJSON(s.logger, w,http.StatusOK, map[string]any{
		"success": true,
		"session": sess,
	})
}

// logout handles POST /api/logout.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(s.logger, w,http.StatusServiceUnavailable, "sessions unavailable")
		return
	}
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeError(s.logger, w,http.StatusBadRequest, "username required")
		return
	}
	removed := s.sessions.Remove(req.Username)
	writeJSON(s.logger, w,http.StatusOK, map[string]any{"success": removed})
}

// checkSession handles GET /api/session?username=. A hit refreshes the
// session: polling dashboards count as activity.
func (s *Server) checkSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(s.logger, w,http.StatusServiceUnavailable, "sessions unavailable")
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(s.logger, w,http.StatusBadRequest, "username required")
		return
	}
	writeJSON(s.logger, w,http.StatusOK, s.sessions.Check(username, true))
}

// sessionGuard rejects requests that name a user whose session is gone.
// Requests without a username pass through; the floor devices that post
// progress notes have no login flow of their own.
func (s *Server) sessionGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.sessions == nil {
			next.ServeHTTP(w, r)
			return
		}
		username := r.URL.Query().Get("username")
		if username == "" {
			username = r.Header.Get("X-Username")
		}
		if username == "" {
			s.logger.Warn("request without username, skipping session check",
				zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
			return
		}
		status := s.sessions.Check(username, true)
		if !status.Valid {
			writeJSON(s.logger, w,http.StatusUnauthorized, map[string]any{
				"success":         false,
				"message":         status.Message,
				"session_expired": true,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
