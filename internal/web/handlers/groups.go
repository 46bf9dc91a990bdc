package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/rollcall/internal/roster"
)

// GroupsHandler lists the groups of the roster.
type GroupsHandler struct {
	roster roster.Store
}

func NewGroupsHandler(store roster.Store) *GroupsHandler {
	return &GroupsHandler{roster: store}
}

// List returns the sorted group names.
func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.roster.Groups(r.Context())
	if err != nil {
		log.Printf("Failed to list groups: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}
	if groups == nil {
		groups = []string{}
	}
	respondJSON(w, http.StatusOK, groups)
}
