package web

import (
	"encoding/json"
	"net/http"

	"snaplens/internal/settings"
)

var settableKeys = map[string]bool{
	settings.KeyAPIKey:         true,
	settings.KeyEndpoint:       true,
	settings.KeyModel:          true,
	settings.KeyCustomEndpoint: true,
}

// handleGetSettings returns the persisted configuration. The credential is
// masked; only its presence is reported.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	stored, err := s.service.Settings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if _, ok := stored[settings.KeyAPIKey]; ok {
		stored[settings.KeyAPIKey] = "***"
	}
	writeJSON(w, http.StatusOK, stored)
}

// handlePutSettings persists the provided keys and reconfigures the analysis
// client. Unknown keys are rejected.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	for key := range req {
		if !settableKeys[key] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown setting: " + key})
			return
		}
	}
	for key, value := range req {
		if err := s.service.UpdateSetting(r.Context(), key, value); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
