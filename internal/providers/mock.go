package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
//
// Calls are answered in order: Handler if set, otherwise the next entry of
// Errors (a nil entry means "no error"), then the next entry of Responses.
// Once Responses is exhausted the last entry repeats.
type MockClient struct {
	// Configurable behavior
	Latency   time.Duration
	Responses []string
	Errors    []error
	Handler   func(ctx context.Context, req *ChatRequest) (string, error)

	mu       sync.Mutex
	requests []ChatRequest

	// State
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client that answers every call with text.
func NewMockClient(responses ...string) *MockClient {
	if len(responses) == 0 {
		responses = []string{"mock response"}
	}
	return &MockClient{Responses: responses}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)
	idx := int(count) - 1

	c.mu.Lock()
	c.requests = append(c.requests, *req)
	c.mu.Unlock()

	// Simulate latency
	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, &TransportError{Provider: MockClientName, Err: ctx.Err()}
		}
	}

	var (
		content string
		err     error
	)
	switch {
	case c.Handler != nil:
		content, err = c.Handler(ctx, req)
	case idx < len(c.Errors) && c.Errors[idx] != nil:
		err = c.Errors[idx]
	case len(c.Responses) > 0:
		content = c.Responses[min(idx, len(c.Responses)-1)]
	}
	if err != nil {
		return nil, err
	}

	// Simulate token counting
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	completionTokens := len(content) / 4

	return &ChatResult{
		Content:          content,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		CostUSD:          0.001,
		ExecutionTime:    time.Since(start),
		Provider:         MockClientName,
		ModelUsed:        req.Model,
		RequestID:        fmt.Sprintf("mock-%d", count),
	}, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns a copy of every request received so far.
func (c *MockClient) Requests() []ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Reset resets the request counter.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
