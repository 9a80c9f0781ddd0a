package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// LLMClient sends chat completion requests to a model provider.
type LLMClient interface {
	// Chat sends a single chat completion request. Implementations make one
	// attempt; retrying is the caller's decision.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	// Timeout bounds this single call. Zero uses the client timeout.
	Timeout time.Duration `json:"-"`

	RequestID string `json:"-"`
}

// ChatResult is the response from an LLM call.
type ChatResult struct {
	Content string `json:"content"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`

	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`
	RequestID string `json:"request_id"`
}

// ErrEmptyResponse is the cause of a TransportError for a response that
// carried no completion.
var ErrEmptyResponse = errors.New("no choices in response")

// TransportError reports a failed exchange with a provider: the request
// never completed, the provider answered with a non-success status, or the
// response envelope held no completion (reported as 502).
type TransportError struct {
	Provider   string
	StatusCode int // 0 when no response was received
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request may succeed.
func (e *TransportError) Retryable() bool {
	if e.StatusCode == 0 {
		return !errors.Is(e.Err, context.Canceled)
	}
	switch e.StatusCode {
	case http.StatusRequestTimeout,
		http.StatusConflict,
		http.StatusRequestEntityTooLarge,
		http.StatusUnprocessableEntity,
		http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}

// IsTransportError unwraps err into a *TransportError.
func IsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
