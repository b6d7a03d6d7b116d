package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ember/internal/domain"
)

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		fallback string
		expected string
	}{
		{name: "empty uses fallback", model: "", fallback: "llama-3.1-8b", expected: "llama-3.1-8b"},
		{name: "empty without fallback uses default", model: "", fallback: "", expected: domain.DefaultModel},
		{name: "alias is normalized", model: "llama3.1-8b", expected: "llama-3.1-8b"},
		{name: "canonical passes through", model: "qwen-3-32b", expected: "qwen-3-32b"},
		{name: "unknown passes through", model: "mystery-1b", expected: "mystery-1b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, domain.ResolveModel(tt.model, tt.fallback))
		})
	}
}

func TestSamplingFor(t *testing.T) {
	t.Run("should return overrides for qwen", func(t *testing.T) {
		sampling, ok := domain.SamplingFor("qwen-3-32b")

		require.True(t, ok)
		require.Equal(t, 10240, sampling.MaxCompletionTokens)
		require.InDelta(t, 0.7, sampling.Temperature, 1e-9)
		require.InDelta(t, 0.95, sampling.TopP, 1e-9)
	})

	t.Run("should have no overrides for other models", func(t *testing.T) {
		for _, model := range domain.KnownModels() {
			if model == "qwen-3-32b" {
				continue
			}
			_, ok := domain.SamplingFor(model)
			require.False(t, ok, model)
		}
	})

	t.Run("should apply overrides to a request", func(t *testing.T) {
		sampling, _ := domain.SamplingFor("qwen-3-32b")
		req := &domain.CompletionRequest{Model: "qwen-3-32b"}

		sampling.Apply(req)

		require.Equal(t, 10240, req.MaxCompletionTokens)
	})

	t.Run("should list models with overrides", func(t *testing.T) {
		require.Equal(t, []string{"qwen-3-32b"}, domain.ModelsWithOverrides())
	})
}

func TestKnownModels_ReturnsCopy(t *testing.T) {
	models := domain.KnownModels()
	models[0] = "changed"

	require.Equal(t, domain.DefaultModel, domain.KnownModels()[0])
}
