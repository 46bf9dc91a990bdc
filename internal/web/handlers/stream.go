package handlers

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/kozaktomas/rollcall/internal/camera"
	"github.com/kozaktomas/rollcall/internal/roster"
	"github.com/kozaktomas/rollcall/internal/session"
)

// frameBoundary separates JPEG parts of the MJPEG response.
const frameBoundary = "frame"

// SessionFactory opens a frame source and prepares a pipeline for group.
type SessionFactory func(ctx context.Context, group string) (*session.Pipeline, error)

// StreamHandler runs one recognition session per viewer and streams the
// annotated frames as MJPEG.
type StreamHandler struct {
	roster     roster.Store
	newSession SessionFactory
	sessions   *session.Manager
}

func NewStreamHandler(store roster.Store, newSession SessionFactory, sessions *session.Manager) *StreamHandler {
	return &StreamHandler{roster: store, newSession: newSession, sessions: sessions}
}

// Stream serves multipart/x-mixed-replace frames until the camera ends or
// the viewer disconnects.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	group, ok := lookupGroup(w, r, h.roster)
	if !ok {
		return
	}

	p, err := h.newSession(r.Context(), group)
	if err != nil {
		log.Printf("Failed to start session for %s: %v", sanitizeForLog(group), err)
		if errors.Is(err, camera.ErrSourceFailure) {
			respondError(w, http.StatusServiceUnavailable, "camera unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	defer p.Close()

	untrack := h.sessions.Track(p)
	defer untrack()

	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(frameBoundary); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to start stream")
		return
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+frameBoundary)
	w.Header().Set("Cache-Control", "no-cache, no-store")
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	w.WriteHeader(http.StatusOK)

	log.Printf("Session %s started for %s", p.ID, sanitizeForLog(group))
	for frame := range p.Frames(r.Context()) {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {"image/jpeg"},
			"Content-Length": {strconv.Itoa(len(frame.JPEG))},
		})
		if err == nil {
			_, err = part.Write(frame.JPEG)
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			// viewer went away
			break
		}
	}

	if err := p.Err(); err != nil {
		log.Printf("Session %s for %s ended: %v", p.ID, sanitizeForLog(group), err)
	} else {
		log.Printf("Session %s for %s ended", p.ID, sanitizeForLog(group))
	}
	if r.Context().Err() == nil {
		_ = mw.Close()
	}
}
