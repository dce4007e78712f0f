package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsChatAllowed(t *testing.T) {
	t.Run("allow all", func(t *testing.T) {
		cfg := TelegramConfig{AllowAllChats: true}
		assert.True(t, cfg.IsChatAllowed(123))
	})

	t.Run("report chat only", func(t *testing.T) {
		cfg := TelegramConfig{ReportChatID: 42}
		assert.True(t, cfg.IsChatAllowed(42))
		assert.False(t, cfg.IsChatAllowed(43))
	})

	t.Run("allowlist", func(t *testing.T) {
		cfg := TelegramConfig{AllowedChats: []int64{1, 2}}
		assert.True(t, cfg.IsChatAllowed(1))
		assert.False(t, cfg.IsChatAllowed(3))
	})

	t.Run("nothing configured answers everyone", func(t *testing.T) {
		cfg := TelegramConfig{}
		assert.True(t, cfg.IsChatAllowed(7))
	})
}

func TestIsAdmin(t *testing.T) {
	cfg := TelegramConfig{AdminChatID: 9}
	assert.True(t, cfg.IsAdmin(9))
	assert.False(t, cfg.IsAdmin(10))
	assert.False(t, TelegramConfig{}.IsAdmin(0))
}

func TestAgentResolution(t *testing.T) {
	cfg := NewFromMap(map[string]any{
		"ai.default_agent": "lyra",
		"ai.agents": []map[string]any{
			{"name": "pirate", "text": "Tu es un pirate."},
		},
	})

	t.Run("configured agent", func(t *testing.T) {
		agent, ok := cfg.AI().GetAgent("Pirate")
		require.True(t, ok)
		assert.Equal(t, "Tu es un pirate.", agent.Text)
	})

	t.Run("default agent falls back to builtin prompt", func(t *testing.T) {
		agent, ok := cfg.AI().GetAgent("lyra")
		require.True(t, ok)
		assert.Equal(t, DefaultAgentPrompt, agent.Text)
	})

	t.Run("unknown agent", func(t *testing.T) {
		_, ok := cfg.AI().GetAgent("nobody")
		assert.False(t, ok)
	})

	t.Run("prompt never empty", func(t *testing.T) {
		assert.NotEmpty(t, cfg.AI().AgentPrompt("nobody"))
		assert.NotEmpty(t, NewFromMap(nil).AI().AgentPrompt(""))
	})

	t.Run("names are sorted and include default", func(t *testing.T) {
		assert.Equal(t, []string{"lyra", "pirate"}, cfg.AI().AgentNames())
	})
}

func TestChatConfigDefaults(t *testing.T) {
	cfg := NewFromMap(map[string]any{
		"chat.history_limit":   12,
		"chat.request_timeout": 45 * time.Second,
		"chat.retry_backoff":   2 * time.Second,
	})

	chat := cfg.Chat()
	assert.Equal(t, 12, chat.HistoryLimit)
	assert.Equal(t, 45*time.Second, chat.RequestTimeout)
	assert.Equal(t, 2*time.Second, chat.RetryBackoff)
}

func TestGetDefaultProviderAndModel(t *testing.T) {
	cfg := NewFromMap(map[string]any{"ai.default_model": "openai:gpt-4o-mini"})
	provider, model := cfg.AI().GetDefaultProviderAndModel()
	assert.Equal(t, "openai", provider)
	assert.Equal(t, "gpt-4o-mini", model)

	cfg = NewFromMap(map[string]any{"ai.default_model": "gpt-4o-mini"})
	provider, model = cfg.AI().GetDefaultProviderAndModel()
	assert.Empty(t, provider)
	assert.Equal(t, "gpt-4o-mini", model)
}
