package config

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// Entry is a configuration key with its default value.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns every configuration key with its default.
// The Manager registers each one with viper so SLATE_* environment
// variables can override it.
func DefaultEntries() []Entry {
	return []Entry{
		// ===================
		// Server
		// ===================
		{
			Key:         "server.host",
			Value:       "127.0.0.1",
			Description: "Address the HTTP server binds to",
		},
		{
			Key:         "server.port",
			Value:       8080,
			Description: "Port the HTTP server listens on",
		},
		{
			Key:         "server.max_upload_mb",
			Value:       50,
			Description: "Maximum upload size in megabytes",
		},
		{
			Key:         "log_level",
			Value:       "info",
			Description: "Log level: debug, info, warn or error",
		},

		// ===================
		// Storage
		// ===================
		{
			Key:         "storage.backend",
			Value:       "sqlite",
			Description: "Job store backend: sqlite or memory",
		},
		{
			Key:         "storage.path",
			Value:       "",
			Description: "SQLite file path (default: ~/.slate/data/jobs.db)",
		},

		// ===================
		// LLM Providers
		// ===================
		{
			Key:         "llm.provider",
			Value:       "openrouter",
			Description: "Provider used for analysis calls",
		},
		{
			Key:         "llm.default_model",
			Value:       "gpt-4o-mini",
			Description: "Model alias used when a request names none",
		},

		// LLM Providers - OpenRouter
		{
			Key:         "llm.providers.openrouter.type",
			Value:       "openrouter",
			Description: "LLM provider type for OpenRouter",
		},
		{
			Key:         "llm.providers.openrouter.api_key",
			Value:       "${OPENROUTER_API_KEY}",
			Description: "OpenRouter API key (uses environment variable)",
		},
		{
			Key:         "llm.providers.openrouter.base_url",
			Value:       "",
			Description: "Override the OpenRouter API base URL",
		},
		{
			Key:         "llm.providers.openrouter.timeout_seconds",
			Value:       30,
			Description: "HTTP timeout in seconds for OpenRouter requests",
		},
		{
			Key:         "llm.providers.openrouter.rate_limit",
			Value:       150.0,
			Description: "Rate limit in requests per minute for OpenRouter",
		},
		{
			Key:         "llm.providers.openrouter.enabled",
			Value:       true,
			Description: "Whether the OpenRouter provider is enabled",
		},

		// LLM Providers - OpenAI
		{
			Key:         "llm.providers.openai.type",
			Value:       "openai",
			Description: "LLM provider type for OpenAI-compatible endpoints",
		},
		{
			Key:         "llm.providers.openai.api_key",
			Value:       "${OPENAI_API_KEY}",
			Description: "OpenAI API key (uses environment variable)",
		},
		{
			Key:         "llm.providers.openai.base_url",
			Value:       "",
			Description: "Override the OpenAI API base URL",
		},
		{
			Key:         "llm.providers.openai.timeout_seconds",
			Value:       30,
			Description: "HTTP timeout in seconds for OpenAI requests",
		},
		{
			Key:         "llm.providers.openai.rate_limit",
			Value:       500.0,
			Description: "Rate limit in requests per minute for OpenAI",
		},
		{
			Key:         "llm.providers.openai.enabled",
			Value:       false,
			Description: "Whether the OpenAI provider is enabled",
		},

		// ===================
		// Analysis
		// ===================
		{
			Key:         "analysis.max_attempts",
			Value:       3,
			Description: "Attempts per AI call before a scene is recorded as failed",
		},
		{
			Key:         "analysis.backoff_base_seconds",
			Value:       1.0,
			Description: "Base retry delay; doubles after each failed attempt",
		},
		{
			Key:         "analysis.sample_threshold",
			Value:       15,
			Description: "Scripts with more scenes than this are sampled (standard and tatort modes)",
		},
		{
			Key:         "analysis.sample_block",
			Value:       5,
			Description: "Scenes taken from the start, middle and end when sampling",
		},
		{
			Key:         "analysis.language_tie",
			Value:       "EN",
			Description: "Language chosen when detection is undecided",
		},
		{
			Key:         "analysis.story_pass",
			Value:       true,
			Description: "Run the story structure pass in story and combined modes",
		},
		{
			Key:         "analysis.thematic_pass",
			Value:       true,
			Description: "Run the thematic question pass in story and combined modes",
		},
		{
			Key:         "analysis.input_tokens_per_scene",
			Value:       500,
			Description: "Input tokens assumed per scene for cost estimates",
		},
		{
			Key:         "analysis.output_tokens_per_scene",
			Value:       200,
			Description: "Output tokens assumed per scene for cost estimates",
		},
		{
			Key:         "analysis.usd_to_eur",
			Value:       1.08,
			Description: "Conversion factor applied to USD cost estimates",
		},
	}
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}
