// Package api exposes the course chatbot over HTTP: query, catalog
// analytics, and session management endpoints as a JSON API, plus the
// static frontend.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern-ai/lectern/internal/course"
	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/rag"
)

// QueryService answers course-material questions. *rag.System satisfies it.
type QueryService interface {
	Query(ctx context.Context, query, sessionID string) (*rag.Answer, error)
	CourseAnalytics(ctx context.Context) (course.Analytics, error)
}

// SessionService manages conversation sessions. *session.Store satisfies it.
type SessionService interface {
	Create(ctx context.Context) (string, error)
	Clear(ctx context.Context, sessionID string) error
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      log.Logger
	Query       QueryService   // Required
	Sessions    SessionService // Required
	Pool        *pgxpool.Pool  // Optional: nil disables the DB check in /ready
	CORSOrigins []string       // Allowed origins for CORS
	StaticDir   string         // Optional: serve the frontend from this dir
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Query == nil {
		return nil, errors.New("query service is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	h := &handler{
		query:    cfg.Query,
		sessions: cfg.Sessions,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/query", h.postQuery)
	mux.HandleFunc("GET /api/courses", h.getCourses)
	mux.HandleFunc("DELETE /api/session/{id}", h.deleteSession)

	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must wrap the routes so preflight OPTIONS is handled.
	var stacked http.Handler = mux
	stacked = corsMiddleware(cfg.CORSOrigins)(stacked)
	stacked = loggingMiddleware(logger)(stacked)
	stacked = requestIDMiddleware()(stacked)
	stacked = recoveryMiddleware(logger)(stacked)

	// A top-level mux keeps health probes outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", h.health)
	topMux.Handle("GET /ready", h.readiness(cfg.Pool))
	topMux.Handle("/", stacked)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
