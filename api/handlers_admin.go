package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.GetStats()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// cleanupRequest is the POST /api/maintenance/cleanup body
type cleanupRequest struct {
	Days int `json:"days"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Days <= 0 {
		respondWithError(w, http.StatusBadRequest, "days must be positive", nil)
		return
	}

	removed, err := s.repo.CleanupOldData(req.Days)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Cleanup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":         req.Days,
		"rows_removed": removed,
	})
}

// handleHealth reports overall health plus the state of the optional
// LLM and cache backends.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	llmStatus := "disabled"
	if s.llmClient != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.llmClient.Ping(ctx); err != nil {
			llmStatus = "unreachable"
		} else {
			llmStatus = "ok"
		}
	}

	cacheStatus := "off"
	if s.cacheOn {
		cacheStatus = "on"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"llm":    llmStatus,
		"cache":  cacheStatus,
	})
}
