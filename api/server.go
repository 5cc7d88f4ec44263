// Package api provides the HTTP REST API for newsrag.
//
// Endpoints:
//
//	POST   /api/chat/message              chat turn (retrieval + generation)
//	GET    /api/chat/history/{sessionId}  full conversation log
//	DELETE /api/chat/history/{sessionId}  clear conversation log
//	GET    /api/chat/status               index stats + embedder dimension
//	POST   /api/session                   create session (optional client ID)
//	GET    /api/session/{sessionId}       session metadata
//	DELETE /api/session/{sessionId}       delete session
//	GET    /health                        liveness probe
//	GET    /ready                         readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: Health check endpoints (/health, /ready)
//   - session.go: Session management endpoints
//   - chat.go: Chat endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/koopa0/newsrag/internal/chat"
	"github.com/koopa0/newsrag/internal/embedding"
	"github.com/koopa0/newsrag/internal/log"
	"github.com/koopa0/newsrag/internal/session"
	"github.com/koopa0/newsrag/internal/vectorstore"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = ":8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generation can take tens of seconds, so this is generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the newsrag REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health  *HealthHandler
	session *SessionHandler
	chat    *ChatHandler
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(svc *chat.Service, sessions session.Store, store vectorstore.Store, embedder embedding.Client, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		logger:  logger,
		health:  NewHealthHandler(sessions, store, logger),
		session: NewSessionHandler(sessions, logger),
		chat:    NewChatHandler(svc, store, embedder, logger),
	}

	s.health.RegisterRoutes(mux)
	s.session.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
