package web

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/rollcall/internal/web/handlers"
	"github.com/kozaktomas/rollcall/internal/web/static"
)

func (s *Server) setupRoutes() {
	// Create handlers
	groupsHandler := handlers.NewGroupsHandler(s.services.Roster)
	attendanceHandler := handlers.NewAttendanceHandler(s.services.Ledger, s.services.Roster)
	streamHandler := handlers.NewStreamHandler(s.services.Roster, s.services.NewSession, s.sessions)
	sessionsHandler := handlers.NewSessionsHandler(s.sessions)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Short requests
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(30 * time.Second))

			r.Get("/groups", groupsHandler.List)
			r.Get("/groups/{group}/attendance", attendanceHandler.List)
			r.Get("/sessions", sessionsHandler.List)
		})

		// Long-lived streams, ended by the client or the camera
		r.Get("/groups/{group}/stream", streamHandler.Stream)
		r.Get("/groups/{group}/events", attendanceHandler.Events)
	})

	// Serve the viewer page
	s.router.Get("/*", s.serveUI)
}

// serveUI serves the embedded viewer. Unknown paths fall back to index.html.
func (s *Server) serveUI(w http.ResponseWriter, r *http.Request) {
	fs := static.GetFileSystem()
	f, err := fs.Open("/index.html")
	if err != nil {
		http.Error(w, "viewer not available", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}
