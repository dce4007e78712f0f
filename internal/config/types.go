package config

import (
	"os"
	"slices"
	"strings"
	"time"
)

type globalConfig struct {
	Language string `koanf:"language"`
}

type TelegramConfig struct {
	Token         string  `koanf:"token"`
	ReportChatID  int64   `koanf:"chat_id"`
	WebhookSecret string  `koanf:"webhook_secret"`
	AdminChatID   int64   `koanf:"admin_chat_id"`
	AllowedChats  []int64 `koanf:"allowed_chats"`
	AllowAllChats bool    `koanf:"allow_all_chats"`
}

// IsChatAllowed reports whether the bot answers the given chat. With an
// empty allowlist only the report chat is answered, unless allow_all_chats
// is set.
func (c TelegramConfig) IsChatAllowed(chatID int64) bool {
	if c.AllowAllChats {
		return true
	}
	if slices.Contains(c.AllowedChats, chatID) {
		return true
	}
	if c.ReportChatID != 0 && chatID == c.ReportChatID {
		return true
	}
	return c.ReportChatID == 0 && len(c.AllowedChats) == 0
}

func (c TelegramConfig) IsAdmin(chatID int64) bool {
	return c.AdminChatID != 0 && chatID == c.AdminChatID
}

type ServerConfig struct {
	ListenAddr string `koanf:"listen_addr"`
}

type LoggingConfig struct {
	LogLevel    string `koanf:"level"`
	WriteInFile bool   `koanf:"write_in_file"`
	FilePath    string `koanf:"file_path"`
}

func (c LoggingConfig) Level() string {
	return c.LogLevel
}

type HTTPConfig struct {
	proxy *string
}

func (c HTTPConfig) GetProxy() string {
	if c.proxy != nil {
		return *c.proxy
	}
	return ""
}

type AIProviderConfig struct {
	Type         string `koanf:"type"`
	Name         string `koanf:"name"`
	BaseURL      string `koanf:"base_url"`
	APIKey       string `koanf:"api_key"`
	EnvAPIKey    string `koanf:"env_api_key"`
	ChatURL      string `koanf:"chat_url"`
	DefaultModel string `koanf:"default_model"`
}

func (c *AIProviderConfig) GetAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.EnvAPIKey != "" {
		return os.Getenv(c.EnvAPIKey)
	}
	return ""
}

type AgentConfig struct {
	Name string `koanf:"name"`
	Text string `koanf:"text"`
}

type aiConfig struct {
	Providers    []AIProviderConfig `koanf:"providers"`
	Agents       []AgentConfig      `koanf:"agents"`
	DefaultModel string             `koanf:"default_model"`
	DefaultAgent string             `koanf:"default_agent"`
	Temperature  float32            `koanf:"temperature"`
}

func (c aiConfig) GetProvider(name string) *AIProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}
	return nil
}

// GetAgent resolves an agent by name, case-insensitively.
func (c aiConfig) GetAgent(name string) (AgentConfig, bool) {
	for _, agent := range c.Agents {
		if strings.EqualFold(agent.Name, name) {
			return agent, true
		}
	}
	if strings.EqualFold(name, c.DefaultAgent) {
		return AgentConfig{Name: c.DefaultAgent, Text: DefaultAgentPrompt}, true
	}
	return AgentConfig{}, false
}

// AgentPrompt returns the prompt template for the given agent, falling back
// to the default agent when the name is unknown. Never empty.
func (c aiConfig) AgentPrompt(name string) string {
	if agent, ok := c.GetAgent(name); ok && agent.Text != "" {
		return agent.Text
	}
	if agent, ok := c.GetAgent(c.DefaultAgent); ok && agent.Text != "" {
		return agent.Text
	}
	return DefaultAgentPrompt
}

func (c aiConfig) AgentNames() []string {
	names := make([]string, 0, len(c.Agents)+1)
	for _, agent := range c.Agents {
		names = append(names, agent.Name)
	}
	if !slices.Contains(names, c.DefaultAgent) && c.DefaultAgent != "" {
		names = append(names, c.DefaultAgent)
	}
	slices.Sort(names)
	return names
}

func (c aiConfig) GetDefaultProviderAndModel() (provider, model string) {
	parts := strings.SplitN(c.DefaultModel, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", c.DefaultModel
}

type ChatConfig struct {
	HistoryLimit   int           `koanf:"history_limit"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	RetryBackoff   time.Duration `koanf:"retry_backoff"`
}

type DeliveryConfig struct {
	DefaultMode  string        `koanf:"default_mode"`
	SoftLimit    int           `koanf:"soft_limit"`
	HardLimit    int           `koanf:"hard_limit"`
	SendInterval time.Duration `koanf:"send_interval"`
}

type OsintConfig struct {
	Keywords        []string      `koanf:"keywords"`
	Interval        time.Duration `koanf:"interval"`
	RunOnBoot       bool          `koanf:"run_on_boot"`
	PerKeywordLimit int           `koanf:"per_keyword_limit"`
	Proxy           string        `koanf:"proxy"`
}

type HeartbeatConfig struct {
	Interval time.Duration `koanf:"interval"`
}
