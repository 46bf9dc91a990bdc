package handlers

import (
	"net/http"

	"github.com/kozaktomas/rollcall/internal/session"
)

// SessionsHandler lists live sessions.
type SessionsHandler struct {
	sessions *session.Manager
}

func NewSessionsHandler(sessions *session.Manager) *SessionsHandler {
	return &SessionsHandler{sessions: sessions}
}

func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.sessions.List())
}
