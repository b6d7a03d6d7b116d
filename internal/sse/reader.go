package sse

import (
	"bufio"
	"io"
	"strings"
)

const (
	initialBufferSize = 64 * 1024
	maxEventSize      = 1024 * 1024
)

// Reader parses SSE events from a byte stream. Frame boundaries are found
// regardless of how the underlying transport chunks the bytes.
type Reader struct {
	scanner *bufio.Scanner

	current   Event
	hasFields bool
	hasData   bool
}

// NewReader returns a Reader parsing events from src.
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, initialBufferSize), maxEventSize)

	return &Reader{scanner: scanner}
}

// Next blocks until a complete event is available. It returns nil, nil when
// the source is exhausted. A trailing event without a closing blank line is
// still yielded.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		if line == "" {
			if r.hasFields {
				return r.take(), nil
			}
			// Keep-alive or leading blank line.
			continue
		}

		// Comment line.
		if strings.HasPrefix(line, ":") {
			continue
		}

		r.parseLine(line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if r.hasFields {
		return r.take(), nil
	}

	return nil, nil
}

// parseLine accumulates one "field:value" line. A single space after the
// colon is stripped.
func (r *Reader) parseLine(line string) {
	field, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch field {
	case "data":
		if r.hasData {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
		r.hasFields = true
	case "event":
		r.current.Type = value
		r.hasFields = true
	case "id":
		r.current.ID = value
		r.hasFields = true
	default:
		// "retry" and unknown fields are ignored.
	}
}

func (r *Reader) take() *Event {
	ev := r.current
	r.current = Event{}
	r.hasFields = false
	r.hasData = false
	return &ev
}
