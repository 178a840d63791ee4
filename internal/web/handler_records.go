package web

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"snaplens/internal/domain"
)

type recordResponse struct {
	ID           int64     `json:"id"`
	Description  string    `json:"description"`
	ResponseText string    `json:"response_text"`
	CreatedAt    time.Time `json:"created_at"`
}

func toRecordResponse(record *domain.PhotoRecord) recordResponse {
	return recordResponse{
		ID:           record.ID,
		Description:  record.Description,
		ResponseText: record.ResponseText,
		CreatedAt:    record.CreatedAt,
	}
}

// handleSaveRecord persists the current photo and its analysis as a gallery
// entry.
func (s *Server) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.SaveRecord(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordResponse(record))
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListRecords(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]recordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordResponse(record))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecordPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record id"})
		return
	}

	reader, mimeType, err := s.service.RecordPhoto(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	defer func() { _ = reader.Close() }()

	w.Header().Set("Content-Type", mimeType)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("failed to stream photo", "record_id", id, "error", err)
	}
}

func (s *Server) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearGallery(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
