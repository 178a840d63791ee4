package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"snaplens/internal/analysis"
	"snaplens/internal/camera"
	"snaplens/internal/service"
)

// Server is the JSON HTTP surface over the pipeline: the stand-in for a
// presentation layer wiring buttons to capture, analyze and save.
type Server struct {
	service        *service.PipelineService
	mux            *http.ServeMux
	logger         *slog.Logger
	analyzeTimeout time.Duration
}

// NewServer wires the routes. analyzeTimeout bounds a single analysis request;
// zero leaves latency unbounded, matching the client's own no-timeout policy.
func NewServer(svc *service.PipelineService, analyzeTimeout time.Duration, logger *slog.Logger) *Server {
	s := &Server{
		service:        svc,
		mux:            http.NewServeMux(),
		logger:         logger,
		analyzeTimeout: analyzeTimeout,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /capture", s.handleCapture)
	s.mux.HandleFunc("POST /analyze", s.handleAnalyze)
	s.mux.HandleFunc("POST /analyze/custom", s.handleAnalyzeCustom)
	s.mux.HandleFunc("POST /records", s.handleSaveRecord)
	s.mux.HandleFunc("GET /records", s.handleListRecords)
	s.mux.HandleFunc("GET /records/{id}/photo", s.handleRecordPhoto)
	s.mux.HandleFunc("DELETE /records", s.handleClearRecords)
	s.mux.HandleFunc("GET /settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /settings", s.handlePutSettings)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the pipeline error taxonomy onto HTTP statuses and emits a
// {error} body. Nothing is retried here; retrying is the caller's decision.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
}

func errorStatus(err error) int {
	var provErr *analysis.ProviderError
	var transport *analysis.TransportError
	var malformed *analysis.MalformedResponseError

	switch {
	case errors.Is(err, analysis.ErrAlreadyInProgress):
		return http.StatusConflict
	case errors.Is(err, analysis.ErrMissingCredential),
		errors.Is(err, service.ErrNoSnapshot),
		errors.Is(err, service.ErrNoEndpoint):
		return http.StatusBadRequest
	case errors.Is(err, camera.ErrNotReady), errors.Is(err, camera.ErrNoDevice):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &provErr), errors.As(err, &transport),
		errors.As(err, &malformed), errors.Is(err, analysis.ErrEmptyResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
