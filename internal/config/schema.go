package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jackzampolin/slate/internal/analysis"
	"github.com/jackzampolin/slate/internal/gateway"
	"github.com/jackzampolin/slate/internal/providers"
)

// Config holds slate configuration.
// Stored at: ~/.slate/config.yaml
type Config struct {
	Server   ServerCfg   `mapstructure:"server" yaml:"server"`
	LogLevel string      `mapstructure:"log_level" yaml:"log_level"`
	Storage  StorageCfg  `mapstructure:"storage" yaml:"storage"`
	LLM      LLMCfg      `mapstructure:"llm" yaml:"llm"`
	Analysis AnalysisCfg `mapstructure:"analysis" yaml:"analysis"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// StorageCfg selects the job store.
type StorageCfg struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // "sqlite" or "memory"
	Path    string `mapstructure:"path" yaml:"path"`
}

// LLMCfg selects and configures the AI providers.
type LLMCfg struct {
	Provider     string                    `mapstructure:"provider" yaml:"provider"`
	DefaultModel string                    `mapstructure:"default_model" yaml:"default_model"`
	Providers    map[string]LLMProviderCfg `mapstructure:"providers" yaml:"providers"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type"`       // "openrouter", "openai"
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
}

// AnalysisCfg tunes the analysis run.
type AnalysisCfg struct {
	MaxAttempts          int     `mapstructure:"max_attempts" yaml:"max_attempts"`
	BackoffBaseSeconds   float64 `mapstructure:"backoff_base_seconds" yaml:"backoff_base_seconds"`
	SampleThreshold      int     `mapstructure:"sample_threshold" yaml:"sample_threshold"`
	SampleBlock          int     `mapstructure:"sample_block" yaml:"sample_block"`
	LanguageTie          string  `mapstructure:"language_tie" yaml:"language_tie"`
	StoryPass            bool    `mapstructure:"story_pass" yaml:"story_pass"`
	ThematicPass         bool    `mapstructure:"thematic_pass" yaml:"thematic_pass"`
	InputTokensPerScene  int     `mapstructure:"input_tokens_per_scene" yaml:"input_tokens_per_scene"`
	OutputTokensPerScene int     `mapstructure:"output_tokens_per_scene" yaml:"output_tokens_per_scene"`
	USDToEUR             float64 `mapstructure:"usd_to_eur" yaml:"usd_to_eur"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host:        "127.0.0.1",
			Port:        8080,
			MaxUploadMB: 50,
		},
		LogLevel: "info",
		Storage: StorageCfg{
			Backend: "sqlite",
		},
		LLM: LLMCfg{
			Provider:     providers.OpenRouterName,
			DefaultModel: gateway.DefaultModel,
			Providers: map[string]LLMProviderCfg{
				providers.OpenRouterName: {
					Type:           providers.OpenRouterName,
					APIKey:         "${OPENROUTER_API_KEY}",
					TimeoutSeconds: 30,
					RateLimit:      150,
					Enabled:        true,
				},
				providers.OpenAIName: {
					Type:           providers.OpenAIName,
					APIKey:         "${OPENAI_API_KEY}",
					TimeoutSeconds: 30,
					RateLimit:      500,
				},
			},
		},
		Analysis: AnalysisCfg{
			MaxAttempts:          3,
			BackoffBaseSeconds:   1,
			SampleThreshold:      15,
			SampleBlock:          5,
			LanguageTie:          gateway.LangEN,
			StoryPass:            true,
			ThematicPass:         true,
			InputTokensPerScene:  500,
			OutputTokensPerScene: 200,
			USDToEUR:             1.08,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	switch c.Storage.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("storage.backend %q must be sqlite or memory", c.Storage.Backend)
	}
	switch c.Analysis.LanguageTie {
	case gateway.LangDE, gateway.LangEN:
	default:
		return fmt.Errorf("analysis.language_tie %q must be DE or EN", c.Analysis.LanguageTie)
	}
	if c.Analysis.MaxAttempts < 1 {
		return fmt.Errorf("analysis.max_attempts must be at least 1")
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// RetryPolicy returns the gateway retry policy for AI calls.
func (c *Config) RetryPolicy() gateway.RetryPolicy {
	base := time.Duration(c.Analysis.BackoffBaseSeconds * float64(time.Second))
	return gateway.RetryPolicy{
		MaxAttempts: c.Analysis.MaxAttempts,
		Backoff:     gateway.ExponentialBackoff(base),
	}
}

// AnalysisSettings returns the per-run orchestrator settings.
func (c *Config) AnalysisSettings() analysis.Settings {
	return analysis.Settings{
		Sampler: analysis.Sampler{
			Threshold: c.Analysis.SampleThreshold,
			Block:     c.Analysis.SampleBlock,
		},
		LanguageTie:  c.Analysis.LanguageTie,
		StoryPass:    c.Analysis.StoryPass,
		ThematicPass: c.Analysis.ThematicPass,
	}
}

// CostConfig returns the token assumptions for cost estimates.
func (c *Config) CostConfig() analysis.CostConfig {
	return analysis.CostConfig{
		InputTokensPerScene:  c.Analysis.InputTokensPerScene,
		OutputTokensPerScene: c.Analysis.OutputTokensPerScene,
		USDToEUR:             c.Analysis.USDToEUR,
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	p, ok := c.LLM.Providers[name]
	return p, ok
}
