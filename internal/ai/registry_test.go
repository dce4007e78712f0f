package ai

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/logger"
)

func newTestRegistry(t *testing.T, defaultModel string) *ProviderRegistry {
	t.Helper()
	cfg := config.NewFromMap(map[string]any{
		"ai.default_model": defaultModel,
	})
	r := NewProviderRegistry(cfg, logger.NewTestLogger(), &http.Client{})
	r.RegisterProvider(ProviderOpenai, NewOpenAICompatibleClient(
		ProviderOpenai, "http://openai.test", "", "", "gpt-4o-mini", logger.NewTestLogger(), &http.Client{},
	))
	r.RegisterProvider(ProviderOllama, NewOllamaClient(
		ProviderOllama, "http://ollama.test", "llama3", logger.NewTestLogger(), &http.Client{},
	))
	return r
}

func TestProviderRegistry_ResolveModel(t *testing.T) {
	r := newTestRegistry(t, "openai:gpt-4o-mini")

	t.Run("explicit provider spec", func(t *testing.T) {
		provider, model, err := r.ResolveModel("ollama:mistral")
		require.NoError(t, err)
		assert.Equal(t, ProviderOllama, provider.Name())
		assert.Equal(t, "mistral", model)
	})

	t.Run("bare model uses default provider", func(t *testing.T) {
		provider, model, err := r.ResolveModel("gpt-4o")
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenai, provider.Name())
		assert.Equal(t, "gpt-4o", model)
	})

	t.Run("empty spec uses default model", func(t *testing.T) {
		provider, model, err := r.ResolveModel("")
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenai, provider.Name())
		assert.Equal(t, "gpt-4o-mini", model)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, _, err := r.ResolveModel("nope:model")
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})
}

func TestProviderRegistry_NoBackend(t *testing.T) {
	cfg := config.NewFromMap(map[string]any{})
	r := NewProviderRegistry(cfg, logger.NewTestLogger(), &http.Client{})

	_, _, err := r.ResolveModel("")
	assert.ErrorIs(t, err, ErrNoBackendConfigured)
}

func TestProviderRegistry_Override(t *testing.T) {
	r := newTestRegistry(t, "openai:gpt-4o-mini")

	t.Run("invalid address rejected", func(t *testing.T) {
		err := r.SetOverride("http://host:11434/api")
		assert.Error(t, err)
		assert.False(t, r.HasOverride())
	})

	t.Run("override wins resolution", func(t *testing.T) {
		require.NoError(t, r.SetOverride("https://abc-123.ngrok-free.app"))
		assert.True(t, r.HasOverride())

		provider, model, err := r.ResolveModel("gpt-4o-mini")
		require.NoError(t, err)
		assert.Equal(t, ProviderOllama, provider.Name())
		assert.Equal(t, "gpt-4o-mini", model)
	})

	t.Run("clear restores configured resolution", func(t *testing.T) {
		r.ClearOverride()
		assert.False(t, r.HasOverride())

		provider, _, err := r.ResolveModel("")
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenai, provider.Name())
	})
}
