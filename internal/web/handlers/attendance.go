package handlers

import (
	"encoding/csv"
	"log"
	"net/http"

	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/roster"
)

// AttendanceEntry is one row of a group's attendance.
type AttendanceEntry struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

func toEntry(rec database.AttendanceRecord) AttendanceEntry {
	return AttendanceEntry{Name: rec.Label, Time: rec.Timestamp()}
}

// AttendanceHandler serves recorded attendance.
type AttendanceHandler struct {
	ledger *attendance.Ledger
	roster roster.Store
}

func NewAttendanceHandler(ledger *attendance.Ledger, store roster.Store) *AttendanceHandler {
	return &AttendanceHandler{ledger: ledger, roster: store}
}

// List returns the group's attendance in recording order, as JSON or as a
// CSV download with ?format=csv.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	group, ok := lookupGroup(w, r, h.roster)
	if !ok {
		return
	}

	records, err := h.ledger.Records(r.Context(), group)
	if err != nil {
		log.Printf("Failed to read attendance for %s: %v", sanitizeForLog(group), err)
		respondError(w, http.StatusInternalServerError, "failed to read attendance")
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		entries := make([]AttendanceEntry, len(records))
		for i, rec := range records {
			entries[i] = toEntry(rec)
		}
		respondJSON(w, http.StatusOK, entries)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+constants.AttendanceFilePrefix+group+`.csv"`)
		w.WriteHeader(http.StatusOK)
		cw := csv.NewWriter(w)
		for _, rec := range records {
			_ = cw.Write([]string{rec.Label, rec.Timestamp()})
		}
		cw.Flush()
	default:
		respondError(w, http.StatusBadRequest, "unsupported format")
	}
}

// Events streams attendance as server-sent events: a "snapshot" event with
// the records so far, then one "attendance" event per new record.
func (h *AttendanceHandler) Events(w http.ResponseWriter, r *http.Request) {
	group, ok := lookupGroup(w, r, h.roster)
	if !ok {
		return
	}

	// subscribe before the snapshot so no record falls between the two
	events, unsubscribe := h.ledger.Subscribe(group)
	defer unsubscribe()

	records, err := h.ledger.Records(r.Context(), group)
	if err != nil {
		log.Printf("Failed to read attendance for %s: %v", sanitizeForLog(group), err)
		respondError(w, http.StatusInternalServerError, "failed to read attendance")
		return
	}
	seen := make(map[string]struct{}, len(records))
	snapshot := make([]AttendanceEntry, len(records))
	for i, rec := range records {
		seen[rec.Label] = struct{}{}
		snapshot[i] = toEntry(rec)
	}

	rc := setupSSEConnection(w)
	if err := sendSSEEvent(w, rc, "snapshot", snapshot); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case rec, ok := <-events:
			if !ok {
				return
			}
			if _, dup := seen[rec.Label]; dup {
				continue
			}
			seen[rec.Label] = struct{}{}
			if err := sendSSEEvent(w, rc, "attendance", toEntry(rec)); err != nil {
				return
			}
		}
	}
}
