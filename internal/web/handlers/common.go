package handlers

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/rollcall/internal/roster"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// lookupGroup reads the {group} URL parameter and checks that the roster
// knows it. On failure it writes the error response and returns false.
func lookupGroup(w http.ResponseWriter, r *http.Request, store roster.Store) (string, bool) {
	group := chi.URLParam(r, "group")
	if !roster.ValidGroup(group) {
		respondError(w, http.StatusBadRequest, "invalid group")
		return "", false
	}
	groups, err := store.Groups(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list groups")
		return "", false
	}
	if !slices.Contains(groups, group) {
		respondError(w, http.StatusNotFound, "group not found")
		return "", false
	}
	return group, true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
