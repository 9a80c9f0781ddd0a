package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenRouterClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		var received openRouterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Verify request
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			if ref := r.Header.Get("HTTP-Referer"); ref != defaultReferer {
				t.Errorf("HTTP-Referer = %q, want %q", ref, defaultReferer)
			}
			if title := r.Header.Get("X-Title"); title != defaultTitle {
				t.Errorf("X-Title = %q, want %q", title, defaultTitle)
			}
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("decode request: %v", err)
			}

			resp := map[string]any{
				"id":    "test-id",
				"model": "openai/gpt-4o-mini",
				"choices": []map[string]any{
					{
						"message": map[string]any{
							"role":    "assistant",
							"content": `{"story_event":"x"}`,
						},
						"finish_reason": "stop",
					},
				},
				"usage": map[string]any{
					"prompt_tokens":     10,
					"completion_tokens": 8,
					"total_tokens":      18,
					"cost":              0.0002,
				},
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Model: "openai/gpt-4o-mini",
			Messages: []Message{
				{Role: "system", Content: "be brief"},
				{Role: "user", Content: "Hello"},
			},
			Temperature: 0.3,
			MaxTokens:   1000,
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != `{"story_event":"x"}` {
			t.Errorf("Content = %q", result.Content)
		}
		if result.TotalTokens != 18 {
			t.Errorf("TotalTokens = %d, want 18", result.TotalTokens)
		}
		if result.CostUSD != 0.0002 {
			t.Errorf("CostUSD = %v, want 0.0002", result.CostUSD)
		}
		if result.RequestID == "" {
			t.Error("expected generated RequestID")
		}
		if received.Model != "openai/gpt-4o-mini" {
			t.Errorf("request model = %q", received.Model)
		}
		if received.Temperature != 0.3 || received.MaxTokens != 1000 {
			t.Errorf("request params = %v/%d, want 0.3/1000", received.Temperature, received.MaxTokens)
		}
		if len(received.Messages) != 2 || received.Messages[0].Role != "system" {
			t.Errorf("request messages = %+v", received.Messages)
		}
	})

	t.Run("uses default model", func(t *testing.T) {
		var received openRouterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&received)
			w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:       "test-key",
			BaseURL:      server.URL,
			DefaultModel: "google/gemini-1.5-flash",
		})
		if _, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		}); err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if received.Model != "google/gemini-1.5-flash" {
			t.Errorf("model = %q, want google/gemini-1.5-flash", received.Model)
		}
	})

	t.Run("HTTP error", func(t *testing.T) {
		tests := []struct {
			status    int
			retryable bool
		}{
			{http.StatusTooManyRequests, true},
			{http.StatusInternalServerError, true},
			{http.StatusBadGateway, true},
			{http.StatusUnauthorized, false},
			{http.StatusBadRequest, false},
		}
		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Retry-After", "2")
					w.WriteHeader(tt.status)
					w.Write([]byte(`{"error": {"message": "nope"}}`))
				}))
				defer server.Close()

				client := NewOpenRouterClient(OpenRouterConfig{
					APIKey:  "test-key",
					BaseURL: server.URL,
				})
				_, err := client.Chat(context.Background(), &ChatRequest{
					Messages: []Message{{Role: "user", Content: "test"}},
				})
				te, ok := IsTransportError(err)
				if !ok {
					t.Fatalf("error = %v, want TransportError", err)
				}
				if te.StatusCode != tt.status {
					t.Errorf("StatusCode = %d, want %d", te.StatusCode, tt.status)
				}
				if te.Retryable() != tt.retryable {
					t.Errorf("Retryable() = %v, want %v", te.Retryable(), tt.retryable)
				}
				if te.RetryAfter != 2*time.Second {
					t.Errorf("RetryAfter = %v, want 2s", te.RetryAfter)
				}
			})
		}
	})

	t.Run("error in body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"message":"upstream overloaded","code":503}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL})
		_, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		te, ok := IsTransportError(err)
		if !ok {
			t.Fatalf("error = %v, want TransportError", err)
		}
		if te.StatusCode != 503 {
			t.Errorf("StatusCode = %d, want 503", te.StatusCode)
		}
	})

	t.Run("unusable envelope", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"empty choices", `{"choices":[]}`},
			{"not json", `<html>gateway</html>`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte(tt.body))
				}))
				defer server.Close()

				client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL})
				_, err := client.Chat(context.Background(), &ChatRequest{
					Messages: []Message{{Role: "user", Content: "test"}},
				})
				te, ok := IsTransportError(err)
				if !ok {
					t.Fatalf("error = %v, want TransportError", err)
				}
				if te.StatusCode != http.StatusBadGateway {
					t.Errorf("StatusCode = %d, want %d", te.StatusCode, http.StatusBadGateway)
				}
				if !te.Retryable() {
					t.Error("Retryable() = false, want true")
				}
			})
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		_, err := client.Chat(ctx, &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err == nil {
			t.Fatal("expected error from cancelled context")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})

	t.Run("request timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL})
		_, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
			Timeout:  20 * time.Millisecond,
		})
		te, ok := IsTransportError(err)
		if !ok {
			t.Fatalf("error = %v, want TransportError", err)
		}
		if !te.Retryable() {
			t.Error("timeout should be retryable")
		}
	})
}

func TestOpenRouterClient_Config(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey: "test-key",
		})

		if client.Name() != OpenRouterName {
			t.Errorf("Name() = %s, want %s", client.Name(), OpenRouterName)
		}
		if client.baseURL != OpenRouterBaseURL {
			t.Errorf("baseURL = %s, want %s", client.baseURL, OpenRouterBaseURL)
		}
		if client.defaultModel != "openai/gpt-4o-mini" {
			t.Errorf("defaultModel = %s", client.defaultModel)
		}
		if client.client.Timeout != 30*time.Second {
			t.Errorf("timeout = %v, want 30s", client.client.Timeout)
		}
	})

	t.Run("rate limit", func(t *testing.T) {
		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:    "test-key",
			RateLimit: 50,
		})
		if got := client.Limiter().Status().TokensLimit; got != 50 {
			t.Errorf("TokensLimit = %d, want 50", got)
		}
	})
}
