package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	GLOBAL_LANGUAGE          = "global.language"
	TELEGRAM_TOKEN           = "telegram.token"
	TELEGRAM_CHAT_ID         = "telegram.chat_id"
	TELEGRAM_WEBHOOK_SECRET  = "telegram.webhook_secret"
	TELEGRAM_ADMIN_CHAT_ID   = "telegram.admin_chat_id"
	TELEGRAM_ALLOWED_CHATS   = "telegram.allowed_chats"
	TELEGRAM_ALLOW_ALL_CHATS = "telegram.allow_all_chats"
	SERVER_LISTEN_ADDR       = "server.listen_addr"
	HTTP_PROXY               = "http.proxy"
	AI_DEFAULT_MODEL         = "ai.default_model"
	AI_DEFAULT_AGENT         = "ai.default_agent"
	AI_TEMPERATURE           = "ai.temperature"
	AI_PROVIDERS             = "ai.providers"
	AI_AGENTS                = "ai.agents"
	CHAT_HISTORY_LIMIT       = "chat.history_limit"
	CHAT_REQUEST_TIMEOUT     = "chat.request_timeout"
	CHAT_RETRY_BACKOFF       = "chat.retry_backoff"
	DELIVERY_DEFAULT_MODE    = "delivery.default_mode"
	DELIVERY_SOFT_LIMIT      = "delivery.soft_limit"
	DELIVERY_HARD_LIMIT      = "delivery.hard_limit"
	DELIVERY_SEND_INTERVAL   = "delivery.send_interval"
	OSINT_KEYWORDS           = "osint.keywords"
	OSINT_INTERVAL           = "osint.interval"
	OSINT_RUN_ON_BOOT        = "osint.run_on_boot"
	OSINT_PER_KEYWORD_LIMIT  = "osint.per_keyword_limit"
	OSINT_PROXY              = "osint.proxy"
	HEARTBEAT_INTERVAL       = "heartbeat.interval"
	DATABASE_DSN             = "database.dsn"
	LOGGING_LEVEL            = "logging.level"
	LOGGING_WRITE_IN_FILE    = "logging.write_in_file"
	LOGGING_FILE_PATH        = "logging.file_path"
)

var defaultSQLiteParams = map[string]string{
	"_journal":      "WAL",
	"_busy_timeout": "10000",
	"_synchronous":  "NORMAL",
	"_cache":        "shared",
}

// DefaultAgentPrompt is the persona the bot falls back to when nothing is
// configured.
const DefaultAgentPrompt = "Tu es Lyra: assistante utile, concise, en français, ton naturel. " +
	"Réponds clairement, étape par étape si besoin. Évite les réponses trop longues."

type Config struct {
	k *koanf.Koanf
}

var configPath string

func init() {
	flag.StringVar(&configPath, "config", "", "Path to config file")
}

func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		GLOBAL_LANGUAGE:          "fr",
		TELEGRAM_TOKEN:           "",
		TELEGRAM_WEBHOOK_SECRET:  "dev",
		TELEGRAM_ALLOW_ALL_CHATS: false,
		SERVER_LISTEN_ADDR:       ":8080",
		HTTP_PROXY:               nil,
		AI_DEFAULT_MODEL:         "openai:gpt-4o-mini",
		AI_DEFAULT_AGENT:         "lyra",
		AI_TEMPERATURE:           0.3,
		CHAT_HISTORY_LIMIT:       12,
		CHAT_REQUEST_TIMEOUT:     45 * time.Second,
		CHAT_RETRY_BACKOFF:       2 * time.Second,
		DELIVERY_DEFAULT_MODE:    "unconstrained",
		DELIVERY_SOFT_LIMIT:      3800,
		DELIVERY_HARD_LIMIT:      4096,
		DELIVERY_SEND_INTERVAL:   300 * time.Millisecond,
		OSINT_INTERVAL:           6 * time.Hour,
		OSINT_RUN_ON_BOOT:        true,
		OSINT_PER_KEYWORD_LIMIT:  5,
		HEARTBEAT_INTERVAL:       30 * time.Minute,
		DATABASE_DSN:             "lyra.db?_journal=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache=shared",
		LOGGING_LEVEL:            "info",
		LOGGING_WRITE_IN_FILE:    false,
	}
	k.Load(confmap.Provider(defaults, "."), nil)

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config %s: %v", path, err)
			}
			break
		}
	}

	k.Load(env.Provider("LYRA_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "LYRA_")),
			"_", ".",
		)
	}), nil)

	if k.Get(TELEGRAM_TOKEN) == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	return &Config{k: k}, nil
}

// NewFromMap builds a Config from raw values, bypassing files and env.
// Used by tests.
func NewFromMap(values map[string]any) *Config {
	k := koanf.New(".")
	k.Load(confmap.Provider(values, "."), nil)
	return &Config{k: k}
}

func (c *Config) Telegram() TelegramConfig {
	return TelegramConfig{
		Token:         c.k.String(TELEGRAM_TOKEN),
		ReportChatID:  c.k.Int64(TELEGRAM_CHAT_ID),
		WebhookSecret: c.k.String(TELEGRAM_WEBHOOK_SECRET),
		AdminChatID:   c.k.Int64(TELEGRAM_ADMIN_CHAT_ID),
		AllowedChats:  c.k.Int64s(TELEGRAM_ALLOWED_CHATS),
		AllowAllChats: c.k.Bool(TELEGRAM_ALLOW_ALL_CHATS),
	}
}

func (c *Config) Server() ServerConfig {
	return ServerConfig{
		ListenAddr: c.k.String(SERVER_LISTEN_ADDR),
	}
}

func (c *Config) AI() aiConfig {
	var cfg aiConfig
	if err := c.k.Unmarshal("ai", &cfg); err != nil {
		return aiConfig{}
	}
	return cfg
}

func (c *Config) Chat() ChatConfig {
	return ChatConfig{
		HistoryLimit:   c.k.Int(CHAT_HISTORY_LIMIT),
		RequestTimeout: c.k.Duration(CHAT_REQUEST_TIMEOUT),
		RetryBackoff:   c.k.Duration(CHAT_RETRY_BACKOFF),
	}
}

func (c *Config) Delivery() DeliveryConfig {
	return DeliveryConfig{
		DefaultMode:  c.k.String(DELIVERY_DEFAULT_MODE),
		SoftLimit:    c.k.Int(DELIVERY_SOFT_LIMIT),
		HardLimit:    c.k.Int(DELIVERY_HARD_LIMIT),
		SendInterval: c.k.Duration(DELIVERY_SEND_INTERVAL),
	}
}

func (c *Config) Osint() OsintConfig {
	return OsintConfig{
		Keywords:        c.k.Strings(OSINT_KEYWORDS),
		Interval:        c.k.Duration(OSINT_INTERVAL),
		RunOnBoot:       c.k.Bool(OSINT_RUN_ON_BOOT),
		PerKeywordLimit: c.k.Int(OSINT_PER_KEYWORD_LIMIT),
		Proxy:           c.k.String(OSINT_PROXY),
	}
}

func (c *Config) Heartbeat() HeartbeatConfig {
	return HeartbeatConfig{
		Interval: c.k.Duration(HEARTBEAT_INTERVAL),
	}
}

func (c *Config) HTTP() HTTPConfig {
	var proxy string
	if proxyValue := c.k.Get(HTTP_PROXY); proxyValue != nil {
		proxy = proxyValue.(string)
	}

	return HTTPConfig{
		proxy: &proxy,
	}
}

func (c *Config) Log() LoggingConfig {
	return LoggingConfig{
		LogLevel:    c.k.String(LOGGING_LEVEL),
		WriteInFile: c.k.Bool(LOGGING_WRITE_IN_FILE),
		FilePath:    c.k.String(LOGGING_FILE_PATH),
	}
}

func (c *Config) Global() globalConfig {
	return globalConfig{
		Language: c.k.String(GLOBAL_LANGUAGE),
	}
}

func (c *Config) GetDatabaseDSN() string {
	dsn := c.k.String(DATABASE_DSN)
	parts := strings.Split(dsn, "?")
	path := parts[0]

	params := make(map[string]string)
	if len(parts) > 1 {
		for param := range strings.SplitSeq(parts[1], "&") {
			if kv := strings.Split(param, "="); len(kv) == 2 {
				params[kv[0]] = kv[1]
			}
		}
	}

	for k, v := range defaultSQLiteParams {
		if _, exists := params[k]; !exists {
			params[k] = v
		}
	}

	var queryParams []string
	for k, v := range params {
		queryParams = append(queryParams, k+"="+v)
	}
	sort.Strings(queryParams)

	if len(queryParams) > 0 {
		return path + "?" + strings.Join(queryParams, "&")
	}
	return path
}

func getConfigPaths() []string {
	if configPath != "" {
		return []string{configPath}
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, _ := os.UserHomeDir()
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		"lyra.toml",
		"config.toml",
		filepath.Join(xdgConfig, "lyra", "config.toml"),
		"/etc/lyra/config.toml",
	}
}
