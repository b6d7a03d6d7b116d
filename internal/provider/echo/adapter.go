// Package echo provides a local provider that streams the last user message
// back word by word. It makes no external calls and is meant for development
// and for exercising the relay without a Cerebras key.
package echo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
)

const (
	providerName = "echo"
	modelName    = "echo"

	// DefaultChunkDelay spaces fragments the way a real upstream would.
	DefaultChunkDelay = 10 * time.Millisecond
)

// Provider implements the domain.Provider interface for echo testing.
type Provider struct {
	name       string
	chunkDelay time.Duration
}

// NewProvider creates a new echo provider.
func NewProvider() *Provider {
	return NewProviderWithDelay(DefaultChunkDelay)
}

// NewProviderWithDelay creates an echo provider pausing delay between fragments.
func NewProviderWithDelay(delay time.Duration) *Provider {
	return &Provider{
		name:       providerName,
		chunkDelay: delay,
	}
}

// Stream returns the last user message as a stream of word fragments.
func (p *Provider) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if req.Model != modelName {
		return nil, &domain.UpstreamError{
			StatusCode: 404,
			Message:    fmt.Sprintf("model %s is not supported by echo provider", req.Model),
		}
	}

	logger := observability.FromContext(ctx)
	logger.Debug("streaming echo request")

	id := fmt.Sprintf("echo-%d", time.Now().UnixNano())
	words := strings.Fields(lastUserMessage(req.Messages))

	chunks := make(chan domain.StreamChunk)

	go func() {
		defer close(chunks)

		for i, word := range words {
			delta := word
			if i > 0 {
				delta = " " + word
			}

			select {
			case <-ctx.Done():
				return
			case chunks <- domain.StreamChunk{ID: id, Model: modelName, Delta: delta}:
			}

			if p.chunkDelay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.chunkDelay):
				}
			}
		}
	}()

	return chunks, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// IsModelSupported checks if the provider supports the given model.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return model == modelName
}

// SupportedModels returns a list of all models this provider supports.
func (p *Provider) SupportedModels(_ context.Context) []string {
	return []string{modelName}
}

func lastUserMessage(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
