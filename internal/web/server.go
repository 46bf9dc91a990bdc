package web

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/roster"
	"github.com/kozaktomas/rollcall/internal/session"
	"github.com/kozaktomas/rollcall/internal/web/handlers"
	"github.com/kozaktomas/rollcall/internal/web/middleware"
)

// Services are the collaborators the HTTP API is built on.
type Services struct {
	Roster     roster.Store
	Ledger     *attendance.Ledger
	NewSession handlers.SessionFactory
}

// Server represents the web server
type Server struct {
	services   Services
	router     *chi.Mux
	httpServer *http.Server
	sessions   *session.Manager
	cancel     context.CancelFunc
}

// NewServer creates a new web server
func NewServer(services Services, port int, host string, allowedOrigins []string) *Server {
	r := chi.NewRouter()

	s := &Server{
		services: services,
		router:   r,
		sessions: session.NewManager(),
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(middleware.SecurityHeaders())

	// Set up routes
	s.setupRoutes()

	// Request contexts derive from baseCtx so that Shutdown can end open streams.
	baseCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// Streams lift their own write deadline
	s.httpServer = &http.Server{
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server. Open streams and event
// subscriptions are cancelled first.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("Shutting down web server, %d sessions active...", s.sessions.Len())
	s.cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Sessions returns the live session registry
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}
