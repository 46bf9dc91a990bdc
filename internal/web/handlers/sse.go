package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// setupSSEConnection sets the event stream headers and lifts the server's
// write deadline for the long-lived response.
func setupSSEConnection(w http.ResponseWriter) *http.ResponseController {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	w.WriteHeader(http.StatusOK)
	return rc
}

func sendSSEEvent(w http.ResponseWriter, rc *http.ResponseController, eventType string, data any) error {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	if _, err := io.WriteString(w, "\n\n"); err != nil {
		return err
	}
	return rc.Flush()
}
