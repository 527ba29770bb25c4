package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/npezzotti/go-karaoke/internal/types"
)

type sseWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func (s *sseWriter) writeEvent(evt *types.Event) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return s.write("data: " + string(b) + "\n\n")
}

func (s *sseWriter) writeKeepAlive() error {
	return s.write(": keepalive\n\n")
}

func (s *sseWriter) write(frame string) error {
	err := s.rc.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}

	if _, err := io.WriteString(s.w, frame); err != nil {
		return err
	}

	return s.rc.Flush()
}

// ServeSSE streams a party's events as text/event-stream until the client
// disconnects or the subscriber is evicted.
func (t *Transport) ServeSSE(w http.ResponseWriter, r *http.Request, partyId int) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sw := &sseWriter{w: w, rc: http.NewResponseController(w)}
	if err := t.stream(r.Context(), partyId, sw); err != nil {
		t.log.Printf("sse stream for party %d closed: %v", partyId, err)
	}
}
