package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/slate/internal/providers"
)

type staticSource struct {
	client providers.LLMClient
	err    error
}

func (s staticSource) Default() (providers.LLMClient, error) {
	return s.client, s.err
}

func newTestGateway(t *testing.T, client providers.LLMClient, policy RetryPolicy) *Gateway {
	t.Helper()
	g, err := New(Config{Clients: staticSource{client: client}, Retry: policy})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		Backoff:     func(int) time.Duration { return time.Millisecond },
	}
}

const validAnswer = `{"story_event":"Anna finds the letter","subtext":"fear of loss","turning_point":"Revelation","on_stage":["ANNA"],"off_stage":[],"protagonist_mood":"Confused"}`

func TestGateway_AnalyzeScene(t *testing.T) {
	t.Run("sends resolved model and prompt", func(t *testing.T) {
		mock := providers.NewMockClient(validAnswer)
		g := newTestGateway(t, mock, fastPolicy(3))

		got, err := g.AnalyzeScene(context.Background(), "INT. KITCHEN - DAY\nAnna reads.", ModeStandard, LangEN, "claude-3-haiku")
		if err != nil {
			t.Fatalf("AnalyzeScene() error = %v", err)
		}
		if got.StoryEvent != "Anna finds the letter" {
			t.Errorf("StoryEvent = %q, want %q", got.StoryEvent, "Anna finds the letter")
		}
		if got.Variant != VariantBase {
			t.Errorf("Variant = %q, want %q", got.Variant, VariantBase)
		}

		reqs := mock.Requests()
		if len(reqs) != 1 {
			t.Fatalf("requests = %d, want 1", len(reqs))
		}
		req := reqs[0]
		if req.Model != "anthropic/claude-3-haiku" {
			t.Errorf("Model = %q, want %q", req.Model, "anthropic/claude-3-haiku")
		}
		if req.Temperature != 0.3 || req.MaxTokens != 1000 || req.Timeout != 30*time.Second {
			t.Errorf("params = %v/%d/%v, want 0.3/1000/30s", req.Temperature, req.MaxTokens, req.Timeout)
		}
		if req.Messages[0].Content != SystemPrompt {
			t.Errorf("system message = %q", req.Messages[0].Content)
		}
		if !strings.Contains(req.Messages[1].Content, "Anna reads.") {
			t.Error("user prompt should embed the scene text")
		}
	})

	t.Run("combined variant carries both groups", func(t *testing.T) {
		answer := "```json\n" + `{"story_event":"x","subtext":"y","turning_point":"None","on_stage":[],"protagonist_mood":"Hopeful","evidence":"knife","act":"Act II-A"}` + "\n```"
		g := newTestGateway(t, providers.NewMockClient(answer), fastPolicy(1))

		got, err := g.AnalyzeScene(context.Background(), "scene", ModeCombined, LangDE, "")
		if err != nil {
			t.Fatalf("AnalyzeScene() error = %v", err)
		}
		if got.Crime == nil || got.Crime.Evidence != "knife" {
			t.Errorf("Crime = %+v, want evidence knife", got.Crime)
		}
		if got.Narrative == nil || got.Narrative.Act != "Act II-A" {
			t.Errorf("Narrative = %+v, want act Act II-A", got.Narrative)
		}
	})

	t.Run("retries transport errors", func(t *testing.T) {
		mock := providers.NewMockClient(validAnswer)
		mock.Errors = []error{
			&providers.TransportError{Provider: "mock", StatusCode: 503},
			&providers.TransportError{Provider: "mock", StatusCode: 429},
		}
		g := newTestGateway(t, mock, fastPolicy(3))

		if _, err := g.AnalyzeScene(context.Background(), "scene", ModeStandard, LangEN, ""); err != nil {
			t.Fatalf("AnalyzeScene() error = %v", err)
		}
		if mock.RequestCount() != 3 {
			t.Errorf("RequestCount = %d, want 3", mock.RequestCount())
		}
	})

	t.Run("exhaustion returns ErrTransport", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Handler = func(context.Context, *providers.ChatRequest) (string, error) {
			return "", &providers.TransportError{Provider: "mock", StatusCode: 502, Message: "bad gateway"}
		}
		g := newTestGateway(t, mock, fastPolicy(3))

		_, err := g.AnalyzeScene(context.Background(), "scene", ModeStandard, LangEN, "")
		if !errors.Is(err, ErrTransport) {
			t.Fatalf("error = %v, want ErrTransport", err)
		}
		if !strings.Contains(err.Error(), "3 attempts") {
			t.Errorf("error = %q, want attempt count", err.Error())
		}
		if mock.RequestCount() != 3 {
			t.Errorf("RequestCount = %d, want 3", mock.RequestCount())
		}
	})

	t.Run("empty completion is retried as transport", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer server.Close()

		client := providers.NewOpenRouterClient(providers.OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL})
		g := newTestGateway(t, client, fastPolicy(3))

		_, err := g.AnalyzeScene(context.Background(), "scene", ModeStandard, LangEN, "")
		if !errors.Is(err, ErrTransport) {
			t.Fatalf("error = %v, want ErrTransport", err)
		}
		if errors.Is(err, ErrSchema) {
			t.Errorf("error = %v, should not be ErrSchema", err)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("calls = %d, want 3", got)
		}
	})

	t.Run("non-retryable status stops immediately", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Handler = func(context.Context, *providers.ChatRequest) (string, error) {
			return "", &providers.TransportError{Provider: "mock", StatusCode: 401, Message: "bad key"}
		}
		g := newTestGateway(t, mock, fastPolicy(3))

		_, err := g.AnalyzeScene(context.Background(), "scene", ModeStandard, LangEN, "")
		if !errors.Is(err, ErrTransport) {
			t.Fatalf("error = %v, want ErrTransport", err)
		}
		if mock.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", mock.RequestCount())
		}
	})

	t.Run("schema failure is not retried", func(t *testing.T) {
		mock := providers.NewMockClient("I am unable to analyze this scene.")
		g := newTestGateway(t, mock, fastPolicy(3))

		_, err := g.AnalyzeScene(context.Background(), "scene", ModeStandard, LangEN, "")
		if !errors.Is(err, ErrSchema) {
			t.Fatalf("error = %v, want ErrSchema", err)
		}
		if mock.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", mock.RequestCount())
		}
	})

	t.Run("no client", func(t *testing.T) {
		g, err := New(Config{Clients: staticSource{err: providers.ErrNoClient}})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		_, err = g.AnalyzeScene(context.Background(), "scene", ModeStandard, LangEN, "")
		if !errors.Is(err, providers.ErrNoClient) {
			t.Errorf("error = %v, want ErrNoClient", err)
		}
	})
}

func TestGateway_Complete(t *testing.T) {
	mock := providers.NewMockClient(`[{"scene":1}]`)
	g := newTestGateway(t, mock, fastPolicy(1))

	got, err := g.Complete(context.Background(), "structure please", "gpt-4o", 2000)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `[{"scene":1}]` {
		t.Errorf("Complete() = %q", got)
	}
	req := mock.Requests()[0]
	if req.MaxTokens != 2000 {
		t.Errorf("MaxTokens = %d, want 2000", req.MaxTokens)
	}
	if req.Model != "openai/gpt-4o" {
		t.Errorf("Model = %q, want openai/gpt-4o", req.Model)
	}
}

func TestNew_RequiresClients(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() without a client source should fail")
	}
}
