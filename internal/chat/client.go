// Package chat is the client side of the relay: it sends a turn, consumes
// the SSE reply and keeps the visible transcript with live throughput stats.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
	"github.com/davidbz/ember/internal/preferences"
	"github.com/davidbz/ember/internal/sse"
)

const (
	chatPath         = "/api"
	maxErrorBodySize = 64 * 1024
)

// ErrTurnInFlight is returned when Send is called while a turn is streaming.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// Client sends turns to the relay and records them in a Transcript.
type Client struct {
	relayURL     string
	httpClient   *http.Client
	prefs        *preferences.Preferences
	transcript   *Transcript
	systemPrompt string
	now          func() time.Time

	mu       sync.Mutex
	inFlight bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock replaces the clock used for turn statistics.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// WithSystemPrompt replaces the system message sent with every turn.
func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) { c.systemPrompt = prompt }
}

// NewClient creates a client talking to the relay at relayURL.
func NewClient(relayURL string, prefs *preferences.Preferences, transcript *Transcript, opts ...ClientOption) *Client {
	c := &Client{
		relayURL:     strings.TrimRight(relayURL, "/"),
		httpClient:   &http.Client{},
		prefs:        prefs,
		transcript:   transcript,
		systemPrompt: domain.DefaultSystemPrompt,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcript returns the conversation this client records into.
func (c *Client) Transcript() *Transcript {
	return c.transcript
}

// Send submits input as a user turn and consumes the relay's reply.
// onUpdate, when non-nil, receives the assistant entry after every change.
//
// Failures that happen before streaming starts are returned as errors and
// recorded in the transcript as an error entry. A failure reported in-band
// by the relay finalizes the turn and is recorded the same way, but Send
// still returns the turn with a nil error.
func (c *Client) Send(ctx context.Context, input string, onUpdate func(Entry)) (*Turn, error) {
	if !c.acquire() {
		return nil, ErrTurnInFlight
	}
	defer c.release()

	if strings.TrimSpace(input) == "" {
		return nil, errors.New("message cannot be empty")
	}

	logger := observability.FromContext(ctx)

	credential, err := c.prefs.Credential(ctx)
	if errors.Is(err, preferences.ErrNotFound) {
		c.transcript.AddError(MsgMissingKey)
		return nil, domain.ErrMissingCredential
	}
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}

	model, err := c.prefs.Model(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}

	messages := make([]domain.Message, 0, 8)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: c.systemPrompt})
	messages = append(messages, c.transcript.History()...)
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: input})
	c.transcript.Add(domain.RoleUser, input)

	resp, err := c.post(ctx, credential, &domain.ChatRequest{Messages: messages, Model: model})
	if err != nil {
		logger.Error("relay request failed", observability.Error(err))
		c.transcript.AddError(MsgGeneric)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
		logger.Error("relay rejected request", observability.Error(statusErr))
		c.transcript.AddError(MessageForStatus(resp.StatusCode))
		return nil, statusErr
	}

	turn := NewTurn(c.now)
	if err := turn.Start(); err != nil {
		return nil, err
	}
	ctx = observability.WithTurnID(ctx, turn.ID())
	c.publish(turn, onUpdate)

	return turn, c.consume(ctx, resp.Body, turn, onUpdate)
}

// consume reads frames until the turn is finalized or the body ends.
func (c *Client) consume(ctx context.Context, body io.Reader, turn *Turn, onUpdate func(Entry)) error {
	logger := observability.FromContext(ctx)
	reader := sse.NewReader(body)

	for turn.State() == TurnStreaming {
		ev, err := reader.Next()
		if err != nil {
			logger.Error("reading response stream failed", observability.Error(err))
			_ = turn.Fail(MsgStreamRead)
			c.publish(turn, onUpdate)
			c.transcript.AddError(MsgStreamRead)
			return fmt.Errorf("reading response stream: %w", err)
		}

		// A body that ends without a terminal record still completes the turn.
		if ev == nil {
			logger.Debug("response stream ended without terminal record")
			_ = turn.Apply(domain.Done{})
			break
		}

		frames, err := sse.Decode(ev.Data)
		if err != nil {
			logger.Warn("skipping undecodable frame", observability.Error(err))
			continue
		}

		for _, frame := range frames {
			if err := turn.Apply(frame); err != nil {
				logger.Warn("skipping frame", observability.Error(err))
				continue
			}
			if notice, ok := frame.(domain.ErrorNotice); ok {
				c.publish(turn, onUpdate)
				c.transcript.AddError(MessageForNotice(notice.Message))
				return nil
			}
		}

		c.publish(turn, onUpdate)
	}

	c.publish(turn, onUpdate)

	stats := turn.Stats()
	logger.Info("turn completed",
		observability.Int("tokens", stats.Tokens),
		observability.Float64("elapsed_seconds", stats.ElapsedSeconds),
		observability.Float64("tokens_per_second", stats.TokensPerSecond),
	)
	return nil
}

func (c *Client) publish(turn *Turn, onUpdate func(Entry)) {
	entry := turn.Entry()
	if err := c.transcript.Upsert(entry); err != nil {
		// Already frozen; nothing left to show.
		return
	}
	if onUpdate != nil {
		onUpdate(entry)
	}
}

func (c *Client) post(ctx context.Context, credential string, req *domain.ChatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	return resp, nil
}

func (c *Client) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return false
	}
	c.inFlight = true
	return true
}

func (c *Client) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight = false
}

func readErrorBody(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodySize))
	if err != nil {
		return ""
	}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
