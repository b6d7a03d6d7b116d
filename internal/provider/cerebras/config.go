package cerebras

// Config contains Cerebras upstream configuration.
// The API key is not configured here: every request carries the caller's own.
type Config struct {
	BaseURL string `env:"CEREBRAS_BASE_URL" envDefault:"https://api.cerebras.ai/v1"`
	Timeout int    `env:"CEREBRAS_TIMEOUT"  envDefault:"120"` // seconds
}
