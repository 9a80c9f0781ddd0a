package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const OpenAIName = "openai"

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // Optional (tests, compatible gateways)
	DefaultModel string
	Timeout      time.Duration
	// RateLimit in requests per minute
	RateLimit  float64
	HTTPClient *http.Client // Optional (tests)
}

// OpenAIClient implements LLMClient using the official OpenAI SDK.
type OpenAIClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	rateLimit    float64
	client       openai.Client
	limiter      *RateLimiter
}

// NewOpenAIClient creates a new OpenAI client. SDK retries are disabled;
// the caller owns the retry policy.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 500
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		rateLimit:    cfg.RateLimit,
		client:       openai.NewClient(opts...),
		limiter:      NewRateLimiter(int(cfg.RateLimit)),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Limiter exposes the client's rate limiter for status reporting.
func (c *OpenAIClient) Limiter() *RateLimiter {
	return c.limiter
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	// Aliases resolve to OpenRouter ids; the OpenAI API wants the bare name.
	model := strings.TrimPrefix(req.Model, "openai/")
	if model == "" {
		model = c.defaultModel
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    model,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &TransportError{
			Provider:   OpenAIName,
			StatusCode: http.StatusBadGateway,
			Message:    "no choices in response",
			Err:        ErrEmptyResponse,
		}
	}

	return &ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		ExecutionTime:    time.Since(start),
		Provider:         OpenAIName,
		ModelUsed:        resp.Model,
		RequestID:        requestID,
	}, nil
}

// mapError converts SDK errors into TransportErrors.
func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		te := &TransportError{
			Provider:   OpenAIName,
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
		if apiErr.Response != nil {
			te.RetryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		if te.StatusCode == http.StatusTooManyRequests {
			c.limiter.Record429(te.RetryAfter)
		}
		return te
	}
	return &TransportError{Provider: OpenAIName, Err: err}
}

var _ LLMClient = (*OpenAIClient)(nil)
