package domain

import "context"

// Provider represents an upstream completion provider.
type Provider interface {
	// Stream opens a streaming completion. Errors returned here happen before
	// any fragment was produced (the provider rejected the request outright).
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error)

	// Name returns the provider identifier.
	Name() string

	// IsModelSupported checks if the provider can serve the given model.
	IsModelSupported(ctx context.Context, model string) bool

	// SupportedModels lists the models the provider advertises.
	SupportedModels(ctx context.Context) []string
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (Provider, error)

	// GetByModel retrieves the provider serving a model.
	GetByModel(ctx context.Context, model string) (Provider, error)

	// List returns all available providers.
	List(ctx context.Context) ([]string, error)
}

// FrameSink receives wire frames in order. Implementations flush each frame
// to the client before returning.
type FrameSink interface {
	WriteFrame(frame Frame) error
}
