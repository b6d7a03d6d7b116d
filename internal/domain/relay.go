package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davidbz/ember/internal/observability"
)

// minElapsedSeconds replaces a zero elapsed measurement so throughput is
// never computed against a zero denominator. It equals float64 machine
// epsilon; dividing any realistic token count by it stays finite.
const minElapsedSeconds = 0x1p-52

// DefaultSystemPrompt is injected when a request carries no system message.
const DefaultSystemPrompt = "You are a helpful assistant running on Cerebras hardware."

// RelayConfig contains relay behavior settings.
type RelayConfig struct {
	DefaultModel           string `env:"RELAY_DEFAULT_MODEL"             envDefault:"llama-3.3-70b"`
	MaxContextTokens       int    `env:"RELAY_MAX_CONTEXT_TOKENS"        envDefault:"8000"`
	ReservedResponseTokens int    `env:"RELAY_RESERVED_RESPONSE_TOKENS"  envDefault:"2000"`
	SystemPrompt           string `env:"RELAY_SYSTEM_PROMPT"             envDefault:"You are a helpful assistant running on Cerebras hardware."`
	EchoProvider           bool   `env:"RELAY_ECHO_PROVIDER"             envDefault:"false"`
}

// RelayService forwards chat requests upstream and reframes the provider's
// fragment stream for the client. It holds no per-request state.
type RelayService struct {
	registry     ProviderRegistry
	budget       Budget
	defaultModel string
	systemPrompt string
	now          func() time.Time
}

// NewRelayService creates a new relay service (DI constructor).
func NewRelayService(registry ProviderRegistry, cfg *RelayConfig) *RelayService {
	svc := &RelayService{
		registry:     registry,
		budget:       DefaultBudget(),
		defaultModel: DefaultModel,
		systemPrompt: DefaultSystemPrompt,
		now:          time.Now,
	}

	if cfg != nil {
		if cfg.MaxContextTokens > 0 {
			svc.budget.MaxTokens = cfg.MaxContextTokens
		}
		if cfg.ReservedResponseTokens > 0 {
			svc.budget.ReservedForResponse = cfg.ReservedResponseTokens
		}
		if cfg.DefaultModel != "" {
			svc.defaultModel = cfg.DefaultModel
		}
		if cfg.SystemPrompt != "" {
			svc.systemPrompt = cfg.SystemPrompt
		}
	}

	return svc
}

// WithClock replaces the service clock. Intended for tests.
func (s *RelayService) WithClock(now func() time.Time) *RelayService {
	s.now = now
	return s
}

// RelayStream is an upstream stream opened for one client request.
type RelayStream struct {
	Provider string
	Request  *CompletionRequest

	// OriginalCount is the number of messages before budgeting (after system injection).
	OriginalCount int

	chunks <-chan StreamChunk
	start  time.Time
}

// Open validates req, budgets its history, resolves the model and opens the
// upstream stream. Every error returned here happens before any byte is
// streamed to the client.
func (s *RelayService) Open(ctx context.Context, req *ChatRequest) (*RelayStream, error) {
	if req == nil {
		return nil, &ValidationError{Reason: "request cannot be nil"}
	}

	if req.Credential == "" {
		return nil, ErrMissingCredential
	}

	for i, msg := range req.Messages {
		if !msg.Role.Valid() {
			return nil, &ValidationError{Reason: fmt.Sprintf("message %d has unknown role %q", i, msg.Role)}
		}
	}

	messages := s.ensureSystemMessage(req.Messages)
	truncated := TruncateHistory(messages, s.budget)

	logger := observability.FromContext(ctx)
	logger.Info("history budgeted",
		observability.Int("original_messages", len(messages)),
		observability.Int("truncated_messages", len(truncated)),
	)
	if len(truncated) < len(messages) {
		observability.HistoryTruncationsTotal.Inc()
	}

	completion := &CompletionRequest{
		Model:      ResolveModel(req.Model, s.defaultModel),
		Messages:   truncated,
		Stream:     true,
		Credential: req.Credential,
	}
	if sampling, ok := SamplingFor(completion.Model); ok {
		sampling.Apply(completion)
	}

	logger.Info("resolved upstream parameters",
		observability.String("resolved_model", completion.Model),
		observability.Int("max_completion_tokens", completion.MaxCompletionTokens),
		observability.Float64("temperature", completion.Temperature),
		observability.Float64("top_p", completion.TopP),
	)

	provider, err := s.registry.GetByModel(ctx, completion.Model)
	if err != nil {
		return nil, fmt.Errorf("provider routing failed: %w", err)
	}

	start := s.now()

	chunks, err := provider.Stream(ctx, completion)
	if err != nil {
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to stream from provider: %w", err)
	}

	return &RelayStream{
		Provider:      provider.Name(),
		Request:       completion,
		OriginalCount: len(messages),
		chunks:        chunks,
		start:         start,
	}, nil
}

// Pump copies the upstream stream to sink. Each non-empty fragment becomes
// one ContentDelta. On exhaustion it writes a UsageRecord then Done; on an
// upstream failure it writes an ErrorNotice then Done. It returns early only
// when the client goes away (ctx done or a sink write fails).
func (s *RelayService) Pump(ctx context.Context, stream *RelayStream, sink FrameSink) error {
	logger := observability.FromContext(ctx)
	model := stream.Request.Model

	observability.RelayStreamsActive.Inc()
	defer observability.RelayStreamsActive.Dec()

	tokens := 0

	for {
		select {
		case <-ctx.Done():
			logger.Info("client went away mid-stream", observability.Error(ctx.Err()))
			observability.RecordRelayStream(model, observability.OutcomeCanceled, s.elapsed(stream.start), tokens)
			return ctx.Err()

		case chunk, ok := <-stream.chunks:
			if !ok {
				return s.finish(ctx, stream, sink, tokens)
			}

			if chunk.Error != nil {
				logger.Error("upstream stream failed", observability.Error(chunk.Error))
				observability.RecordRelayStream(model, observability.OutcomeFailed, s.elapsed(stream.start), tokens)

				if err := sink.WriteFrame(ErrorNotice{Message: chunk.Error.Error()}); err != nil {
					return fmt.Errorf("failed to write error frame: %w", err)
				}
				if err := sink.WriteFrame(Done{}); err != nil {
					return fmt.Errorf("failed to write done frame: %w", err)
				}
				return nil
			}

			if chunk.Delta == "" {
				continue
			}

			frame := ContentDelta{ID: chunk.ID, Model: chunk.Model, Text: chunk.Delta}
			if err := sink.WriteFrame(frame); err != nil {
				observability.RecordRelayStream(model, observability.OutcomeCanceled, s.elapsed(stream.start), tokens)
				return fmt.Errorf("failed to write content frame: %w", err)
			}
			tokens += CountWords(chunk.Delta)
		}
	}
}

func (s *RelayService) finish(ctx context.Context, stream *RelayStream, sink FrameSink, tokens int) error {
	sec := s.elapsed(stream.start)

	usage := UsageRecord{
		CompletionTokens: tokens,
		TotalTokens:      tokens,
		CompletionTime:   sec,
		TotalTime:        sec,
	}
	if err := sink.WriteFrame(usage); err != nil {
		return fmt.Errorf("failed to write usage frame: %w", err)
	}
	if err := sink.WriteFrame(Done{}); err != nil {
		return fmt.Errorf("failed to write done frame: %w", err)
	}

	observability.RecordRelayStream(stream.Request.Model, observability.OutcomeCompleted, sec, tokens)
	observability.FromContext(ctx).Info("stream completed",
		observability.Int("tokens", tokens),
		observability.Float64("elapsed_seconds", sec),
		observability.Float64("tokens_per_second", float64(tokens)/sec),
	)
	return nil
}

func (s *RelayService) elapsed(start time.Time) float64 {
	sec := s.now().Sub(start).Seconds()
	if sec <= 0 {
		return minElapsedSeconds
	}
	return sec
}

func (s *RelayService) ensureSystemMessage(messages []Message) []Message {
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			return messages
		}
	}

	withSystem := make([]Message, 0, len(messages)+1)
	withSystem = append(withSystem, Message{Role: RoleSystem, Content: s.systemPrompt})
	return append(withSystem, messages...)
}
