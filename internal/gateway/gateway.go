package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackzampolin/slate/internal/providers"
)

// ClientSource yields the LLM client to use for a call. *providers.Registry
// satisfies it; the lookup happens per call so config reloads take effect.
type ClientSource interface {
	Default() (providers.LLMClient, error)
}

// Config configures a Gateway.
type Config struct {
	Clients ClientSource
	Retry   RetryPolicy

	// Per-call parameters (defaults: 0.3, 1000 tokens, 30s).
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	Logger *slog.Logger
}

// Gateway sends analysis prompts to the configured provider and returns
// validated results.
type Gateway struct {
	clients ClientSource

	mu    sync.RWMutex
	retry RetryPolicy

	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      *slog.Logger
}

// New creates a Gateway.
func New(cfg Config) (*Gateway, error) {
	if cfg.Clients == nil {
		return nil, fmt.Errorf("gateway requires a client source")
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		clients:     cfg.Clients,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      logger,
	}
	g.SetRetryPolicy(cfg.Retry)
	return g, nil
}

// SetRetryPolicy replaces the policy used by subsequent calls.
func (g *Gateway) SetRetryPolicy(p RetryPolicy) {
	if p.OnRetry == nil {
		p.OnRetry = func(attempt int, err error, delay time.Duration) {
			g.logger.Warn("ai call failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		}
	}
	g.mu.Lock()
	g.retry = p
	g.mu.Unlock()
}

// AnalyzeScene asks the model for a structured analysis of one scene.
// Schema failures return ErrSchema without retrying; exhausted transport
// retries return ErrTransport.
func (g *Gateway) AnalyzeScene(ctx context.Context, text string, mode Mode, language, model string) (*SceneAnalysis, error) {
	content, err := g.chat(ctx, []providers.Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: BuildScenePrompt(text, mode, language)},
	}, model, g.maxTokens)
	if err != nil {
		return nil, err
	}
	return ParseSceneAnalysis(content, mode.Variant())
}

// Complete sends a free-form prompt and returns the raw answer text.
func (g *Gateway) Complete(ctx context.Context, prompt, model string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}
	return g.chat(ctx, []providers.Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: prompt},
	}, model, maxTokens)
}

func (g *Gateway) chat(ctx context.Context, messages []providers.Message, model string, maxTokens int) (string, error) {
	client, err := g.clients.Default()
	if err != nil {
		return "", err
	}

	req := &providers.ChatRequest{
		Messages:    messages,
		Model:       ResolveModel(model),
		Temperature: g.temperature,
		MaxTokens:   maxTokens,
		Timeout:     g.timeout,
	}

	g.mu.RLock()
	policy := g.retry
	g.mu.RUnlock()

	var result *providers.ChatResult
	attempts, err := policy.Do(ctx, func(ctx context.Context) error {
		r, err := client.Chat(ctx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return "", transportFailure(attempts, err)
	}

	g.logger.Debug("ai call completed",
		"provider", result.Provider,
		"model", result.ModelUsed,
		"attempts", attempts,
		"tokens", result.TotalTokens,
		"duration", result.ExecutionTime)
	return result.Content, nil
}

// Ready reports whether a client is available for calls.
func (g *Gateway) Ready() error {
	_, err := g.clients.Default()
	return err
}
