package web

import (
	"context"
	"encoding/json"
	"net/http"
)

type analyzeRequest struct {
	Description string `json:"description"`
	Endpoint    string `json:"endpoint,omitempty"`
}

type analyzeResponse struct {
	Response string `json:"response"`
}

func (s *Server) analyzeContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.analyzeTimeout > 0 {
		return context.WithTimeout(r.Context(), s.analyzeTimeout)
	}
	return r.Context(), func() {}
}

// handleAnalyze sends the current photo plus description to the configured
// provider and returns the response text.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ctx, cancel := s.analyzeContext(r)
	defer cancel()

	text, err := s.service.Analyze(ctx, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Response: text})
}

// handleAnalyzeCustom is handleAnalyze against a caller-supplied endpoint
// speaking the minimal schema.
func (s *Server) handleAnalyzeCustom(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ctx, cancel := s.analyzeContext(r)
	defer cancel()

	text, err := s.service.AnalyzeCustom(ctx, req.Description, req.Endpoint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Response: text})
}
