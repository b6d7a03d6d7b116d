package sse

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/davidbz/ember/internal/domain"
)

// Writer writes frames to an HTTP response, flushing after each one so the
// client sees every frame as soon as it is produced.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter wraps w. It fails when w cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported")
	}

	return &Writer{w: w, flusher: flusher}, nil
}

// SetHeaders writes the event-stream response headers. Call it before the
// first frame.
func SetHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// WriteFrame implements domain.FrameSink.
func (s *Writer) WriteFrame(frame domain.Frame) error {
	data, err := Encode(frame)
	if err != nil {
		return err
	}

	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", frame.Kind(), err)
	}
	s.flusher.Flush()

	return nil
}
