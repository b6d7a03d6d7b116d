package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ember/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("should load config with defaults", func(t *testing.T) {
		os.Clearenv()

		cfg := config.Load()

		require.NotNil(t, cfg)

		require.Equal(t, 8080, cfg.Server.Port)
		require.Equal(t, 30, cfg.Server.ReadTimeout)
		require.Equal(t, 300, cfg.Server.WriteTimeout)
		require.Equal(t, "https://api.cerebras.ai/v1", cfg.Cerebras.BaseURL)
		require.Equal(t, 120, cfg.Cerebras.Timeout)
		require.Equal(t, "llama-3.3-70b", cfg.Relay.DefaultModel)
		require.Equal(t, 8000, cfg.Relay.MaxContextTokens)
		require.Equal(t, 2000, cfg.Relay.ReservedResponseTokens)
		require.Equal(t, "You are a helpful assistant running on Cerebras hardware.", cfg.Relay.SystemPrompt)
		require.False(t, cfg.Relay.EchoProvider)
		require.True(t, cfg.Metrics.Enabled)
		require.Equal(t, "/metrics", cfg.Metrics.Path)
		require.Equal(t, []string{"Content-Type", "Authorization"}, cfg.CORS.AllowedHeaders)
	})

	t.Run("should load config from environment variables", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("CEREBRAS_BASE_URL", "http://localhost:9999/v1")
		t.Setenv("CEREBRAS_TIMEOUT", "15")
		t.Setenv("RELAY_DEFAULT_MODEL", "llama-3.1-8b")
		t.Setenv("RELAY_MAX_CONTEXT_TOKENS", "4000")
		t.Setenv("RELAY_RESERVED_RESPONSE_TOKENS", "500")
		t.Setenv("RELAY_ECHO_PROVIDER", "true")
		t.Setenv("LOG_LEVEL", "debug")

		cfg := config.Load()

		require.Equal(t, 9000, cfg.Server.Port)
		require.Equal(t, "http://localhost:9999/v1", cfg.Cerebras.BaseURL)
		require.Equal(t, 15, cfg.Cerebras.Timeout)
		require.Equal(t, "llama-3.1-8b", cfg.Relay.DefaultModel)
		require.Equal(t, 4000, cfg.Relay.MaxContextTokens)
		require.Equal(t, 500, cfg.Relay.ReservedResponseTokens)
		require.True(t, cfg.Relay.EchoProvider)
		require.Equal(t, "debug", cfg.Log.Level)
	})
}

func TestParseDependenciesConfig(t *testing.T) {
	cfg := config.Load()

	deps := config.ParseDependenciesConfig(cfg)

	require.Same(t, &cfg.Server, deps.ServerConfig)
	require.Same(t, &cfg.Relay, deps.RelayConfig)
	require.Same(t, &cfg.Cerebras, deps.Config)
}
