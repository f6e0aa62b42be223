// Package httpapi exposes the matching and assignment operations over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"contractor-matching/internal/common/logger"
	"contractor-matching/internal/models"
)

// Matcher is the matching pipeline as seen by the HTTP layer.
type Matcher interface {
	Match(ctx context.Context, req *models.MatchingRequest) (*models.MatchResult, error)
}

// Assigner is the ticket lifecycle as seen by the HTTP layer.
type Assigner interface {
	Accept(ctx context.Context, ticketID, contractorID, actor string) (*models.Ticket, error)
	Start(ctx context.Context, ticketID, actor string) (*models.Ticket, error)
	Complete(ctx context.Context, ticketID, actor string) (*models.Ticket, error)
	Cancel(ctx context.Context, ticketID, actor, note string) (*models.Ticket, error)
}

// Pinger reports one backing component's liveness for the health endpoint.
type Pinger interface {
	Ping() error
}

// Recorder receives per-operation request telemetry. Nil disables recording.
type Recorder interface {
	RecordRequest(ctx context.Context, operation, status string)
	RecordRequestDuration(ctx context.Context, operation string, duration time.Duration)
}

// Server wires HTTP routes for the matching service.
type Server struct {
	matcher  Matcher
	assigner Assigner
	health   map[string]Pinger
	recorder Recorder
	logger   logger.Logger
}

func NewServer(matcher Matcher, assigner Assigner, health map[string]Pinger, recorder Recorder, log logger.Logger) *Server {
	return &Server{
		matcher:  matcher,
		assigner: assigner,
		health:   health,
		recorder: recorder,
		logger:   log.WithFields(map[string]interface{}{"component": "httpapi"}),
	}
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /match", s.logged("match", s.handleMatch))
	mux.HandleFunc("POST /tickets/{id}/accept", s.logged("accept", s.handleAccept))
	mux.HandleFunc("POST /tickets/{id}/start", s.logged("start", s.handleStart))
	mux.HandleFunc("POST /tickets/{id}/complete", s.logged("complete", s.handleComplete))
	mux.HandleFunc("POST /tickets/{id}/cancel", s.logged("cancel", s.handleCancel))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// logged wraps a handler with request logging and telemetry.
func (s *Server) logged(operation string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		elapsed := time.Since(start)

		if s.recorder != nil {
			outcome := "success"
			if sw.status >= http.StatusBadRequest {
				outcome = "error"
			}
			s.recorder.RecordRequest(r.Context(), operation, outcome)
			s.recorder.RecordRequestDuration(r.Context(), operation, elapsed)
		}

		s.logger.Debug("request handled", map[string]interface{}{
			"operation":  operation,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     sw.status,
			"durationMs": elapsed.Milliseconds(),
		})
	}
}

// statusWriter captures the response code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// actor extracts the caller identity supplied by the auth layer upstream.
func actor(r *http.Request) string {
	if id := r.Header.Get("X-Actor-ID"); id != "" {
		return id
	}
	return "unknown"
}
