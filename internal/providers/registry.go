package providers

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrNoClient is returned when no usable LLM client is registered.
var ErrNoClient = errors.New("no LLM client configured")

// Registry holds references to LLM clients.
// It supports config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu          sync.RWMutex
	llmClients  map[string]LLMClient
	configs     map[string]LLMProviderConfig
	defaultName string
	logger      *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
		configs:    make(map[string]LLMProviderConfig),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	r.logger.Info("registered LLM client", "name", name)
}

// UnregisterLLM removes an LLM client by name.
func (r *Registry) UnregisterLLM(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.llmClients, name)
	delete(r.configs, name)
	r.logger.Info("unregistered LLM client", "name", name)
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// SetDefault names the client returned by Default.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultName = name
}

// Default returns the configured default client. When the default is not
// registered, the first registered client by name is used instead.
func (r *Registry) Default() (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if client, ok := r.llmClients[r.defaultName]; ok {
		return client, nil
	}
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, ErrNoClient
	}
	sort.Strings(names)
	return r.llmClients[names[0]], nil
}

// RegistryConfig defines the providers to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	// Default names the provider used when a request doesn't pick one.
	Default string

	// LLMProviders maps provider names to their config
	LLMProviders map[string]LLMProviderConfig
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type      string // "openrouter", "openai"
	Model     string // Default model id
	APIKey    string // Resolved API key
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // Requests per minute
	Enabled   bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys will be registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaultName = cfg.Default
	want := make(map[string]bool)

	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		want[name] = true

		_, hasExisting := r.llmClients[name]
		if hasExisting && r.configs[name] == provCfg {
			continue
		}
		client := createLLMClient(provCfg)
		if client == nil {
			r.logger.Warn("unknown LLM provider type", "name", name, "type", provCfg.Type)
			delete(want, name)
			continue
		}
		r.llmClients[name] = client
		r.configs[name] = provCfg
		if hasExisting {
			r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
		} else {
			r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
		}
	}

	// Remove providers that are no longer configured. Clients registered
	// directly (no config entry) are left alone.
	for name := range r.configs {
		if !want[name] {
			delete(r.llmClients, name)
			delete(r.configs, name)
			r.logger.Info("unregistered LLM client", "name", name)
		}
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
		})
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
		})
	default:
		return nil
	}
}
