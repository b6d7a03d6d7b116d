package chat

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidbz/ember/internal/domain"
)

// minElapsedSeconds stands in for a zero time span so rates stay finite.
const minElapsedSeconds = 0x1p-52

// ErrTurnNotStreaming is returned when a frame arrives outside Streaming.
var ErrTurnNotStreaming = errors.New("turn is not streaming")

// TurnState is the lifecycle stage of one assistant response.
type TurnState int

// Turn states.
const (
	TurnIdle TurnState = iota
	TurnStreaming
	TurnFinalized
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnStreaming:
		return "streaming"
	case TurnFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Stats are the throughput figures shown under an assistant entry.
type Stats struct {
	Tokens          int
	ElapsedSeconds  float64
	TokensPerSecond float64
}

// Turn reconstructs one assistant response from relay frames.
type Turn struct {
	id    string
	now   func() time.Time
	state TurnState

	text        strings.Builder
	localTokens int
	usageTokens int
	hasUsage    bool

	start      time.Time
	firstToken time.Time
	hasFirst   bool

	stats   Stats
	failure string
}

// NewTurn creates an idle turn. A nil clock means time.Now.
func NewTurn(now func() time.Time) *Turn {
	if now == nil {
		now = time.Now
	}
	return &Turn{id: uuid.NewString(), now: now}
}

// ID identifies the transcript entry this turn fills.
func (t *Turn) ID() string { return t.id }

// State returns the current lifecycle stage.
func (t *Turn) State() TurnState { return t.state }

// Failure returns the message the turn failed with, if any.
func (t *Turn) Failure() string { return t.failure }

// Text returns the assistant text accumulated so far.
func (t *Turn) Text() string { return t.text.String() }

// Tokens returns the authoritative token count: the relay's usage figure
// once received, the local word counter before that. The two are never
// added together.
func (t *Turn) Tokens() int {
	if t.hasUsage {
		return t.usageTokens
	}
	return t.localTokens
}

// Stats returns the live figures while streaming and the frozen ones after.
func (t *Turn) Stats() Stats { return t.stats }

// Start moves the turn from Idle to Streaming.
func (t *Turn) Start() error {
	if t.state != TurnIdle {
		return fmt.Errorf("cannot start a %s turn", t.state)
	}
	t.state = TurnStreaming
	t.start = t.now()
	return nil
}

// Apply consumes one frame. Done and ErrorNotice finalize the turn.
func (t *Turn) Apply(frame domain.Frame) error {
	if t.state != TurnStreaming {
		return fmt.Errorf("%w: %s frame in %s turn", ErrTurnNotStreaming, frame.Kind(), t.state)
	}

	switch f := frame.(type) {
	case domain.ContentDelta:
		t.applyContent(f.Text)
	case domain.UsageRecord:
		t.usageTokens = f.CompletionTokens
		t.hasUsage = true
	case domain.ErrorNotice:
		t.fail(f.Message)
	case domain.Done:
		t.complete()
	default:
		return fmt.Errorf("unsupported frame type %T", frame)
	}

	return nil
}

// Fail finalizes the turn after a transport failure. Text already received
// is kept and the stats stay at their last live values.
func (t *Turn) Fail(message string) error {
	if t.state != TurnStreaming {
		return fmt.Errorf("%w: cannot fail a %s turn", ErrTurnNotStreaming, t.state)
	}
	t.fail(message)
	return nil
}

// Entry snapshots the turn as a transcript entry.
func (t *Turn) Entry() Entry {
	stats := t.stats
	return Entry{
		ID:      t.id,
		Role:    domain.RoleAssistant,
		Content: t.text.String(),
		Stats:   &stats,
		Final:   t.state == TurnFinalized,
	}
}

func (t *Turn) applyContent(text string) {
	if text == "" {
		return
	}

	now := t.now()
	if !t.hasFirst {
		t.firstToken = now
		t.hasFirst = true
	}

	t.text.WriteString(text)
	t.localTokens += domain.CountWords(text)

	elapsed := now.Sub(t.firstToken).Seconds()
	tokens := t.Tokens()
	rate := 0.0
	if tokens > 0 && elapsed > 0 {
		rate = float64(tokens) / elapsed
	}

	t.stats = Stats{
		Tokens:          tokens,
		ElapsedSeconds:  round1(elapsed),
		TokensPerSecond: round1(rate),
	}
}

// complete freezes the final stats. Generation time runs from the first
// token; a turn that never received one, or whose tokens all arrived in the
// same instant, falls back to the whole stream.
func (t *Turn) complete() {
	now := t.now()
	tokens := t.Tokens()

	var elapsed float64
	if t.hasFirst && tokens > 0 {
		elapsed = now.Sub(t.firstToken).Seconds()
	}
	if elapsed <= 0 {
		elapsed = now.Sub(t.start).Seconds()
	}
	elapsed = guard(elapsed)

	t.stats = Stats{
		Tokens:          tokens,
		ElapsedSeconds:  elapsed,
		TokensPerSecond: float64(tokens) / elapsed,
	}
	t.state = TurnFinalized
}

func (t *Turn) fail(message string) {
	t.failure = message
	t.state = TurnFinalized
}

func guard(seconds float64) float64 {
	if seconds <= 0 {
		return minElapsedSeconds
	}
	return seconds
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
