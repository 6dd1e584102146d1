package webserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// sseWriter frames Server-Sent-Events responses. Each event is flushed
// immediately so tokens reach the client as the model emits them.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseWriter{w: w, flusher: flusher}, nil
}

// WriteEvent emits one data frame carrying v as JSON.
func (s *sseWriter) WriteEvent(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshaling event")
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return errors.Wrap(err, "writing event")
	}
	s.flusher.Flush()
	return nil
}

// WriteDone emits the literal terminator frame.
func (s *sseWriter) WriteDone() error {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return errors.Wrap(err, "writing terminator")
	}
	s.flusher.Flush()
	return nil
}
