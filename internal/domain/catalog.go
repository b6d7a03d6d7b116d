package domain

import "sort"

// DefaultModel is used when a request names no model.
const DefaultModel = "llama-3.3-70b"

// Sampling holds per-model parameter overrides. Zero fields are not sent.
type Sampling struct {
	MaxCompletionTokens int
	Temperature         float64
	TopP                float64
}

//nolint:gochecknoglobals // Static lookup tables
var (
	knownModels = []string{
		"llama-3.3-70b",
		"llama-3.1-8b",
		"llama-4-scout-17b-16e-instruct",
		"qwen-3-32b",
	}

	// modelAliases maps alternate spellings to the canonical identifier.
	modelAliases = map[string]string{
		"llama3.1-8b": "llama-3.1-8b",
	}

	modelSampling = map[string]Sampling{
		"qwen-3-32b": {
			MaxCompletionTokens: 10240,
			Temperature:         0.7,
			TopP:                0.95,
		},
	}
)

// KnownModels returns the catalog of selectable models.
func KnownModels() []string {
	models := make([]string, len(knownModels))
	copy(models, knownModels)
	return models
}

// ResolveModel returns the canonical identifier for model, or fallback when
// model is empty. An empty fallback means DefaultModel.
func ResolveModel(model, fallback string) string {
	if model == "" {
		model = fallback
	}
	if model == "" {
		model = DefaultModel
	}
	if canonical, ok := modelAliases[model]; ok {
		return canonical
	}
	return model
}

// SamplingFor returns the overrides registered for model.
func SamplingFor(model string) (Sampling, bool) {
	s, ok := modelSampling[model]
	return s, ok
}

// Apply copies the overrides onto req.
func (s Sampling) Apply(req *CompletionRequest) {
	req.MaxCompletionTokens = s.MaxCompletionTokens
	req.Temperature = s.Temperature
	req.TopP = s.TopP
}

// ModelsWithOverrides lists models that have sampling overrides, sorted.
func ModelsWithOverrides() []string {
	models := make([]string, 0, len(modelSampling))
	for m := range modelSampling {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}
