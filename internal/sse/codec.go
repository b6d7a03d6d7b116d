package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/davidbz/ember/internal/domain"
)

// ErrMalformedFrame is returned by Decode for payloads that are not a
// recognizable frame.
var ErrMalformedFrame = errors.New("malformed frame")

const chunkObject = "chat.completion.chunk"

type wireChunk struct {
	ID      string       `json:"id,omitempty"`
	Object  string       `json:"object,omitempty"`
	Model   string       `json:"model,omitempty"`
	Choices []wireChoice `json:"choices,omitempty"`
}

type wireChoice struct {
	Index   int          `json:"index"`
	Delta   *wireContent `json:"delta,omitempty"`
	Message *wireContent `json:"message,omitempty"`
}

type wireContent struct {
	Content string `json:"content"`
}

type wireUsage struct {
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireTimeInfo struct {
	CompletionTime float64 `json:"completion_time"`
	TotalTime      float64 `json:"total_time"`
}

type wireUsageRecord struct {
	Usage    wireUsage    `json:"usage"`
	TimeInfo wireTimeInfo `json:"time_info"`
}

type wireError struct {
	Error string `json:"error"`
}

// inboundRecord is the union of every shape the decoder accepts.
type inboundRecord struct {
	ID       string          `json:"id"`
	Model    string          `json:"model"`
	Choices  []wireChoice    `json:"choices"`
	Usage    *wireUsage      `json:"usage"`
	TimeInfo *wireTimeInfo   `json:"time_info"`
	Error    json.RawMessage `json:"error"`
}

// Encode renders frame as one complete SSE record, including the blank
// line terminator.
func Encode(frame domain.Frame) ([]byte, error) {
	var payload any

	switch f := frame.(type) {
	case domain.ContentDelta:
		payload = wireChunk{
			ID:     f.ID,
			Object: chunkObject,
			Model:  f.Model,
			Choices: []wireChoice{{
				Index: 0,
				Delta: &wireContent{Content: f.Text},
			}},
		}
	case domain.UsageRecord:
		payload = wireUsageRecord{
			Usage: wireUsage{
				CompletionTokens: f.CompletionTokens,
				TotalTokens:      f.TotalTokens,
			},
			TimeInfo: wireTimeInfo{
				CompletionTime: f.CompletionTime,
				TotalTime:      f.TotalTime,
			},
		}
	case domain.ErrorNotice:
		payload = wireError{Error: f.Message}
	case domain.Done:
		return []byte("data: " + DoneSentinel + "\n\n"), nil
	default:
		return nil, fmt.Errorf("unsupported frame type %T", frame)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", frame.Kind(), err)
	}

	out := make([]byte, 0, len(data)+8)
	out = append(out, "data: "...)
	out = append(out, data...)
	out = append(out, "\n\n"...)
	return out, nil
}

// Decode turns one event payload into frames. A record carrying both content
// and usage yields the ContentDelta first. The result may be empty for chunks
// without text. Payloads that are not JSON, or
// JSON carrying none of the known fields, fail with ErrMalformedFrame.
func Decode(data string) ([]domain.Frame, error) {
	data = strings.TrimSpace(data)
	if data == DoneSentinel {
		return []domain.Frame{domain.Done{}}, nil
	}

	var record inboundRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	if len(record.Error) > 0 && string(record.Error) != "null" {
		return []domain.Frame{domain.ErrorNotice{Message: errorMessage(record.Error)}}, nil
	}

	frames := make([]domain.Frame, 0, 2)

	if text, ok := contentOf(record.Choices); ok {
		frames = append(frames, domain.ContentDelta{ID: record.ID, Model: record.Model, Text: text})
	}

	if record.Usage != nil {
		usage := domain.UsageRecord{
			CompletionTokens: record.Usage.CompletionTokens,
			TotalTokens:      record.Usage.TotalTokens,
		}
		if record.TimeInfo != nil {
			usage.CompletionTime = record.TimeInfo.CompletionTime
			usage.TotalTime = record.TimeInfo.TotalTime
		}
		frames = append(frames, usage)
	}

	// A chunk with choices but no text (role announcement, finish reason) is
	// well formed and yields nothing.
	if len(frames) == 0 && len(record.Choices) == 0 {
		return nil, fmt.Errorf("%w: no content, usage or error in %q", ErrMalformedFrame, data)
	}

	return frames, nil
}

func contentOf(choices []wireChoice) (string, bool) {
	if len(choices) == 0 {
		return "", false
	}

	choice := choices[0]
	switch {
	case choice.Delta != nil && choice.Delta.Content != "":
		return choice.Delta.Content, true
	case choice.Message != nil && choice.Message.Content != "":
		return choice.Message.Content, true
	default:
		return "", false
	}
}

// errorMessage accepts both {"error":"text"} and {"error":{"message":"text"}}.
func errorMessage(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}

	return string(raw)
}
