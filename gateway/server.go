// Package gateway serves the chat, reasoning, search and tasks routes over
// HTTP. Chat-style routes answer with a UI message stream; the tasks route
// streams plain text.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatgate/config"
	"chatgate/model"
	"chatgate/provider"
	"chatgate/storage"
	"chatgate/tools"
)

// Resolver maps a "provider/model" string to a ready provider.
type Resolver interface {
	Resolve(spec string) (model.Provider, provider.ModelRef, error)
}

// UsageRecorder stores one row per finished request.
type UsageRecorder interface {
	Record(rec storage.UsageRecord) error
	Summary() ([]storage.RouteSummary, error)
}

// Server is the HTTP gateway.
type Server struct {
	cfg      *config.Config
	resolver Resolver
	tools    *tools.Registry
	usage    UsageRecorder
	logger   *log.Logger
	limiter  *RateLimiter

	router *http.ServeMux

	mu         sync.Mutex
	httpServer *http.Server
	closed     bool
}

// NewServer wires the routes. registry backs the chat route's tools and may
// be nil.
func NewServer(cfg *config.Config, resolver Resolver, registry *tools.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		resolver: resolver,
		tools:    registry,
		logger:   log.New(os.Stderr, "", log.LstdFlags),
		router:   http.NewServeMux(),
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	}
	s.setupRoutes()
	return s
}

// WithUsage enables the usage ledger.
func (s *Server) WithUsage(u UsageRecorder) *Server {
	s.usage = u
	return s
}

// WithLogger replaces the access logger.
func (s *Server) WithLogger(l *log.Logger) *Server {
	s.logger = l
	return s
}

func (s *Server) setupRoutes() {
	for _, rt := range chatRoutes(s.cfg) {
		s.router.HandleFunc("POST "+string(rt.path), s.handleUIStream(rt))
	}
	s.router.HandleFunc("POST "+string(model.RouteTasks), s.handleTasks)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/usage", s.handleUsage)
}

// Handler returns the router wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	middlewares := []Middleware{
		RecoveryMiddleware,
		LoggingMiddleware(s.logger),
	}
	if s.limiter != nil {
		middlewares = append(middlewares, RateLimitMiddleware(s.limiter))
	}
	middlewares = append(middlewares,
		BodyLimitMiddleware(s.cfg.Server.MaxBodyBytes),
		DeadlineMiddleware(s.cfg.Server.MaxDuration.Duration),
	)
	return Chain(middlewares...)(s.router)
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	hs := &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.cfg.Server.MaxDuration.Duration + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.httpServer = hs
	s.mu.Unlock()

	s.logger.Printf("SERVER_START | addr=%s", s.cfg.Server.Listen)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	hs := s.httpServer
	s.mu.Unlock()
	if hs == nil {
		return nil
	}
	s.logger.Printf("SERVER_STOP | addr=%s", s.cfg.Server.Listen)
	return hs.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		writeError(w, http.StatusNotFound, "Usage ledger is disabled")
		return
	}
	summary, err := s.usage.Summary()
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Gateway] usage summary: %v", err)
		}
		writeError(w, http.StatusInternalServerError, "Failed to read usage")
		return
	}
	if summary == nil {
		summary = []storage.RouteSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": summary})
}

// record writes a ledger row. Ledger failures are logged and never reach the
// client.
func (s *Server) record(route model.Route, ref provider.ModelRef, started time.Time, res Result) {
	if s.usage == nil {
		return
	}
	rec := storage.UsageRecord{
		ID:               uuid.NewString(),
		Route:            string(route),
		Provider:         string(ref.Provider),
		Model:            ref.Model,
		Status:           res.Status,
		FinishReason:     res.FinishReason,
		DurationMS:       time.Since(started).Milliseconds(),
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
		StartedAt:        started,
	}
	if err := s.usage.Record(rec); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[Gateway] failed to record usage: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[Gateway] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
