package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/logger"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/session"
)

// envelope is the response shape every endpoint uses.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type scrapeRequest struct {
	SessionID     string `json:"session_id"`
	SeasonValue   int    `json:"season_value"`
	RegionValue   int    `json:"region_value"`
	AgeGroupValue int    `json:"age_group_value"`
}

type progressData struct {
	SessionID string `json:"session_id"`
	session.Progress
}

// handleScrape advances a scrape by one target. Without a session_id it
// opens a fresh session and runs the first target; with one it runs the next
// unprocessed target. Clients keep posting until status is no longer
// "running".
func (s *Server) handleScrape() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			state, _, err := s.orch.Open(r.Context(), req.SeasonValue, req.RegionValue, req.AgeGroupValue)
			if err != nil {
				logger.Error("opening scrape session", nil, err)
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			sessionID = state.ID
		}

		progress, err := s.orch.Advance(r.Context(), sessionID)
		if err != nil {
			writeSessionError(w, sessionID, err)
			return
		}

		writeJSON(w, http.StatusOK, envelope{Success: true, Data: progressData{
			SessionID: sessionID,
			Progress:  progress,
		}})
	}
}

// handleProgress reports a session's progress without advancing it.
func (s *Server) handleProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}

		progress, err := s.orch.Progress(sessionID)
		if err != nil {
			writeSessionError(w, sessionID, err)
			return
		}

		writeJSON(w, http.StatusOK, envelope{Success: true, Data: progressData{
			SessionID: sessionID,
			Progress:  progress,
		}})
	}
}

// handleClose finishes a session early.
func (s *Server) handleClose() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SessionID == "" {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}

		progress, err := s.orch.Close(req.SessionID)
		if err != nil {
			writeSessionError(w, req.SessionID, err)
			return
		}

		writeJSON(w, http.StatusOK, envelope{Success: true, Data: progressData{
			SessionID: req.SessionID,
			Progress:  progress,
		}})
	}
}

func writeSessionError(w http.ResponseWriter, sessionID string, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found: "+sessionID)
		return
	}
	logger.Error("scrape request failed", logger.Fields{"session_id": sessionID}, err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Data: map[string]string{"message": message}})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("encoding response", nil, err)
	}
}
