package web

import (
	"net/http"
	"time"
)

type captureResponse struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Taken  time.Time `json:"taken"`
}

// handleCapture triggers the capture source and waits for the snapshot event.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Capture(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, captureResponse{
		Width:  snap.Width,
		Height: snap.Height,
		Taken:  snap.Taken,
	})
}
