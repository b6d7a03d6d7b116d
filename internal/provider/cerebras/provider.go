// Package cerebras provides a streaming adapter for the Cerebras inference API.
// Cerebras speaks the OpenAI chat completions protocol, so the adapter drives
// it through the official OpenAI SDK pointed at the Cerebras base URL.
package cerebras

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
)

const providerName = "cerebras"

// Provider implements the domain.Provider interface for Cerebras.
type Provider struct {
	client openai.Client
	name   string
}

// NewProvider creates a new Cerebras provider.
func NewProvider(config *Config) (*Provider, error) {
	if config == nil || config.BaseURL == "" {
		return nil, errors.New("cerebras base URL is required")
	}

	opts := []option.RequestOption{
		option.WithBaseURL(config.BaseURL),
		// The relay never retries: a rejection goes straight back to the caller.
		option.WithMaxRetries(0),
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	return &Provider{
		client: openai.NewClient(opts...),
		name:   providerName,
	}, nil
}

// Stream opens a streaming completion. The first upstream event is awaited
// before returning so that an outright rejection surfaces as an error here,
// while the relay can still answer with a plain HTTP status.
func (p *Provider) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling Cerebras streaming API", observability.String("model", req.Model))

	stream := p.client.Chat.Completions.NewStreaming(ctx, toSDKParams(req), option.WithAPIKey(req.Credential))

	hasFirst := stream.Next()
	if !hasFirst {
		if err := stream.Err(); err != nil {
			_ = stream.Close()
			logger.Error("Cerebras rejected request", observability.Error(err))
			return nil, toUpstreamError(err)
		}
	}

	chunks := make(chan domain.StreamChunk)

	go func() {
		defer close(chunks)
		defer stream.Close()

		if !hasFirst {
			return
		}

		for ok := true; ok; ok = stream.Next() {
			if !send(ctx, chunks, toDomainChunk(stream.Current())) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			logger.Error("Cerebras stream failed", observability.Error(err))
			send(ctx, chunks, domain.StreamChunk{Error: toUpstreamError(err)})
		}
	}()

	return chunks, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// IsModelSupported reports true for any model name: the relay forwards model
// identifiers it does not know and lets Cerebras decide.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return model != ""
}

// SupportedModels returns the catalog of models the relay advertises.
func (p *Provider) SupportedModels(_ context.Context) []string {
	return domain.KnownModels()
}

func send(ctx context.Context, chunks chan<- domain.StreamChunk, chunk domain.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func toDomainChunk(chunk openai.ChatCompletionChunk) domain.StreamChunk {
	out := domain.StreamChunk{ID: chunk.ID, Model: chunk.Model}
	if len(chunk.Choices) > 0 {
		out.Delta = chunk.Choices[0].Delta.Content
	}
	return out
}

func toUpstreamError(err error) *domain.UpstreamError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &domain.UpstreamError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	return &domain.UpstreamError{Err: err}
}

// toSDKParams converts a domain request to SDK ChatCompletionNewParams.
// Zero sampling values are omitted so Cerebras applies its defaults.
func toSDKParams(req *domain.CompletionRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, len(req.Messages))
	for i, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleSystem:
			messages[i] = openai.SystemMessage(msg.Content)
		case domain.RoleAssistant:
			messages[i] = openai.AssistantMessage(msg.Content)
		default:
			messages[i] = openai.UserMessage(msg.Content)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}

	if req.MaxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxCompletionTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}

	return params
}
