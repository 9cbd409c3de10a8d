package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/a3cim/floormon/internal/journal"
)

type progressEntryRequest struct {
	Content string `json:"content"`
}

// getProgressHistory handles GET /api/records/{record_id}/progress.
func (s *Server) getProgressHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(s.logger, w,http.StatusServiceUnavailable, "progress journal unavailable")
		return
	}
	recordID := chi.URLParam(r, "record_id")
	entries, err := s.journal.History(recordID)
	if err != nil {
		s.journalError(w, recordID, "load progress history", err)
		return
	}
	writeJSON(s.logger, w,http.StatusOK, map[string]any{
		"record_id": recordID,
		"entries":   entries,
	})
}

// addProgressEntry handles POST /api/records/{record_id}/progress.
func (s *Server) addProgressEntry(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(s.logger, w,http.StatusServiceUnavailable, "progress journal unavailable")
		return
	}
	recordID := chi.URLParam(r, "record_id")
	var req progressEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w,http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Content == "" {
		writeError(s.logger, w,http.StatusBadRequest, "content required")
		return
	}
	entries, err := s.journal.Append(recordID, req.Content)
	if err != nil {
		s.journalError(w, recordID, "append progress entry", err)
		return
	}
	writeJSON(s.logger, w,http.StatusOK, map[string]any{
		"record_id": recordID,
		"entries":   entries,
	})
}

// removeProgressEntry handles DELETE /api/records/{record_id}/progress/{timestamp}.
func (s *Server) removeProgressEntry(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(s.logger, w,http.StatusServiceUnavailable, "progress journal unavailable")
		return
	}
	recordID := chi.URLParam(r, "record_id")
	timestamp := chi.URLParam(r, "timestamp")
	entries, err := s.journal.Remove(recordID, timestamp)
	if err != nil {
		s.journalError(w, recordID, "remove progress entry", err)
		return
	}
	writeJSON(s.logger, w,http.StatusOK, map[string]any{
		"record_id": recordID,
		"entries":   entries,
	})
}

func (s *Server) journalError(w http.ResponseWriter, recordID, op string, err error) {
	switch {
	case errors.Is(err, journal.ErrBadRecordID):
		writeError(s.logger, w,http.StatusBadRequest, "invalid record id")
	case errors.Is(err, journal.ErrNotFound):
		writeError(s.logger, w,http.StatusNotFound, "progress entry not found")
	default:
		s.logger.Error(op+" failed", zap.String("record_id", recordID), zap.Error(err))
		writeError(s.logger, w,http.StatusInternalServerError, op+" failed")
	}
}
