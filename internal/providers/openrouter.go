package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	defaultReferer = "https://github.com/jackzampolin/slate"
	defaultTitle   = "Slate Scene Analyzer"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	// RateLimit in requests per minute (default: 150)
	RateLimit float64
	// Referer and Title identify the app to OpenRouter.
	Referer string
	Title   string
}

// OpenRouterClient implements LLMClient using the OpenRouter API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	referer      string
	title        string
	rateLimit    float64
	client       *http.Client
	limiter      *RateLimiter
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "openai/gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 150
	}
	if cfg.Referer == "" {
		cfg.Referer = defaultReferer
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		referer:      cfg.Referer,
		title:        cfg.Title,
		rateLimit:    cfg.RateLimit,
		client:       &http.Client{Timeout: cfg.Timeout},
		limiter:      NewRateLimiter(int(cfg.RateLimit)),
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// Limiter exposes the client's rate limiter for status reporting.
func (c *OpenRouterClient) Limiter() *RateLimiter {
	return c.limiter
}

// Chat sends a chat completion request.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
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

	orReq := openRouterRequest{
		Model:       model,
		Messages:    make([]openRouterMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Usage:       &openRouterUsageRequest{Include: true},
	}
	for _, m := range req.Messages {
		orReq.Messages = append(orReq.Messages, openRouterMessage{Role: m.Role, Content: m.Content})
	}

	orResp, err := c.doRequest(ctx, "/chat/completions", &orReq)
	if err != nil {
		return nil, err
	}
	if orResp.Error != nil {
		return nil, &TransportError{
			Provider:   OpenRouterName,
			StatusCode: errorStatus(orResp.Error.Code),
			Message:    orResp.Error.Message,
		}
	}
	if len(orResp.Choices) == 0 {
		return nil, &TransportError{
			Provider:   OpenRouterName,
			StatusCode: http.StatusBadGateway,
			Message:    "no choices in response",
			Err:        ErrEmptyResponse,
		}
	}

	cost := orResp.Usage.Cost
	if cost == 0 {
		cost = orResp.Usage.NativeTotalCost
	}

	return &ChatResult{
		Content:          orResp.Choices[0].Message.Content,
		PromptTokens:     orResp.Usage.PromptTokens,
		CompletionTokens: orResp.Usage.CompletionTokens,
		TotalTokens:      orResp.Usage.TotalTokens,
		CostUSD:          cost,
		ExecutionTime:    time.Since(start),
		Provider:         OpenRouterName,
		ModelUsed:        orResp.Model,
		RequestID:        requestID,
	}, nil
}

// doRequest makes a single HTTP request to OpenRouter.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, body *openRouterRequest) (*openRouterResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: OpenRouterName, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: OpenRouterName, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			c.limiter.Record429(parseRetryAfter(resp.Header.Get("Retry-After")))
		}
		return nil, &TransportError{
			Provider:   OpenRouterName,
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var orResp openRouterResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return nil, &TransportError{
			Provider:   OpenRouterName,
			StatusCode: http.StatusBadGateway,
			Message:    "undecodable response: " + err.Error(),
			Err:        err,
		}
	}
	return &orResp, nil
}

// errorStatus maps an in-body error code to an HTTP status. Codes that
// aren't numeric are reported as a bad gateway.
func errorStatus(code any) int {
	switch v := code.(type) {
	case float64:
		if v >= 400 && v < 600 {
			return int(v)
		}
	case json.Number:
		if n, err := v.Int64(); err == nil && n >= 400 && n < 600 {
			return int(n)
		}
	}
	return http.StatusBadGateway
}

// OpenRouter API types

type openRouterRequest struct {
	Model       string                  `json:"model"`
	Messages    []openRouterMessage     `json:"messages"`
	Temperature float64                 `json:"temperature,omitempty"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	Usage       *openRouterUsageRequest `json:"usage,omitempty"`
}

type openRouterUsageRequest struct {
	Include bool `json:"include"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		TotalTokens      int     `json:"total_tokens"`
		Cost             float64 `json:"cost,omitempty"`
		NativeTotalCost  float64 `json:"native_total_cost,omitempty"`
	} `json:"usage"`
	Error *openRouterError `json:"error,omitempty"`
}

type openRouterError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

var _ LLMClient = (*OpenRouterClient)(nil)
