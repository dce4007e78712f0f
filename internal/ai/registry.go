package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/logger"
)

const (
	ProviderOpenai = "openai"
	ProviderOllama = "ollama"
)

var (
	ErrProviderNotFound    = errors.New("provider not found")
	ErrNoBackendConfigured = errors.New("no backend configured")
)

// ProviderRegistry holds the configured backends and resolves which one
// serves a request. A runtime override, set by the operator, takes priority
// over everything configured and applies to every chat.
type ProviderRegistry struct {
	providers   map[string]Provider
	override    Provider
	overrideURL string
	mu          sync.RWMutex
	logger      logger.Logger
	cfg         *config.Config
	httpClient  *http.Client
}

func NewProviderRegistry(cfg *config.Config, log logger.Logger, httpClient *http.Client) *ProviderRegistry {
	return &ProviderRegistry{
		providers:  make(map[string]Provider),
		logger:     log,
		cfg:        cfg,
		httpClient: httpClient,
	}
}

func (r *ProviderRegistry) RegisterProvider(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
}

func (r *ProviderRegistry) GetProvider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, ok := r.providers[name]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
}

func (r *ProviderRegistry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// SetOverride points the registry at an Ollama backend on the given base
// address, replacing whatever the configuration resolves to. The address is
// validated before it is accepted.
func (r *ProviderRegistry) SetOverride(baseURL string) error {
	cleaned, err := ValidateOllamaBaseURL(baseURL)
	if err != nil {
		return err
	}

	defaultModel := ""
	if cfg := r.cfg.AI().GetProvider(ProviderOllama); cfg != nil {
		defaultModel = cfg.DefaultModel
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.override = NewOllamaClient(ProviderOllama, cleaned, defaultModel, r.logger, r.httpClient)
	r.overrideURL = cleaned
	r.logger.WithField("base_url", cleaned).Info("Backend override set")
	return nil
}

func (r *ProviderRegistry) ClearOverride() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.override = nil
	r.overrideURL = ""
	r.logger.Info("Backend override cleared")
}

// Override returns the active override base URL, if any.
func (r *ProviderRegistry) Override() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overrideURL, r.override != nil
}

func (r *ProviderRegistry) HasOverride() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.override != nil
}

func ParseModelSpec(modelSpec string) (provider string, model string) {
	parts := strings.SplitN(modelSpec, ":", 2)
	if len(parts) != 2 {
		return "", modelSpec
	}
	return parts[0], parts[1]
}

// ResolveModel determines the backend and model by priority:
// 1. Runtime override set by the operator
// 2. Provider named in the model spec ("provider:model")
// 3. Provider of the configured default model
// Returns ErrNoBackendConfigured when nothing resolves.
func (r *ProviderRegistry) ResolveModel(modelSpec string) (Provider, string, error) {
	r.mu.RLock()
	override := r.override
	r.mu.RUnlock()

	providerName, modelName := ParseModelSpec(modelSpec)

	if override != nil {
		if modelName == "" {
			modelName = override.GetDefaultModel()
		}
		return override, modelName, nil
	}

	if providerName != "" {
		provider, err := r.GetProvider(providerName)
		if err != nil {
			return nil, "", err
		}
		return provider, modelName, nil
	}

	defaultProvider, defaultModel := ParseModelSpec(r.cfg.AI().DefaultModel)
	if defaultProvider == "" {
		return nil, "", ErrNoBackendConfigured
	}
	provider, err := r.GetProvider(defaultProvider)
	if err != nil {
		return nil, "", ErrNoBackendConfigured
	}
	if modelName == "" {
		modelName = defaultModel
	}
	return provider, modelName, nil
}
