package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func openRouterForServer(t *testing.T, url string, maxRetries int) *OpenRouter {
	t.Helper()
	s := testSettings()
	s.APIKey = "test-key"
	s.BaseURL = url
	s.Timeout = 5 * time.Second
	s.MaxRetries = maxRetries

	a, err := NewOpenRouter(s)
	if err != nil {
		t.Fatalf("NewOpenRouter failed: %v", err)
	}
	a.retry.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return a
}

func TestOpenRouter_RequiresAPIKey(t *testing.T) {
	if _, err := NewOpenRouter(Settings{}); err == nil {
		t.Fatal("Expected error when API key is missing")
	}
}

func TestGenerateChat_Success(t *testing.T) {
	var gotPath, gotAuth, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "gen-1",
			"model": "test/model",
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": "Hello!"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer server.Close()

	a := openRouterForServer(t, server.URL, 0)
	resp, err := a.GenerateChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "", nil)
	if err != nil {
		t.Fatalf("GenerateChat failed: %v", err)
	}

	if gotPath != "/api/v1/chat/completions" {
		t.Errorf("Expected chat completions path, got %s", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
	if gotReferer == "" {
		t.Error("Expected HTTP-Referer header to be set")
	}
	if resp.Message.Content != "Hello!" {
		t.Errorf("Expected content 'Hello!', got %q", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
	if resp.Provider != "openrouter" {
		t.Errorf("Expected provider openrouter, got %q", resp.Provider)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("Expected finish reason stop, got %q", resp.FinishReason)
	}
}

func TestGenerateText_Success(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"text": "generated text"}},
		})
	}))
	defer server.Close()

	a := openRouterForServer(t, server.URL, 0)
	text, err := a.GenerateText(context.Background(), "write something", "", nil)
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}

	if gotPath != "/api/v1/completions" {
		t.Errorf("Expected completions path, got %s", gotPath)
	}
	if text != "generated text" {
		t.Errorf("Expected 'generated text', got %q", text)
	}
}

func TestGenerateChat_AuthenticationError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	a := openRouterForServer(t, server.URL, 3)
	_, err := a.GenerateChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "", nil)

	var me *Error
	if !errors.As(err, &me) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if me.Kind != KindAuthentication {
		t.Errorf("Expected KindAuthentication, got %v", me.Kind)
	}
	if calls != 1 {
		t.Errorf("Expected no retries on authentication failure, got %d calls", calls)
	}
}

func TestGenerateChat_RateLimitCarriesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	a := openRouterForServer(t, server.URL, 3)
	_, err := a.GenerateChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "", nil)

	var me *Error
	if !errors.As(err, &me) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if me.Kind != KindRateLimit {
		t.Errorf("Expected KindRateLimit, got %v", me.Kind)
	}
	if me.RetryAfter != 30 {
		t.Errorf("Expected RetryAfter 30, got %d", me.RetryAfter)
	}
}

func TestGenerateChat_RetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "recovered"}},
			},
		})
	}))
	defer server.Close()

	a := openRouterForServer(t, server.URL, 3)
	resp, err := a.GenerateChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "", nil)
	if err != nil {
		t.Fatalf("Expected recovery after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if resp.Message.Content != "recovered" {
		t.Errorf("Expected 'recovered', got %q", resp.Message.Content)
	}
}

func TestGenerateChat_ContentFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"content_filter","message":"flagged"}}`))
	}))
	defer server.Close()

	a := openRouterForServer(t, server.URL, 3)
	_, err := a.GenerateChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "", nil)

	var me *Error
	if !errors.As(err, &me) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if me.Kind != KindContentFilter {
		t.Errorf("Expected KindContentFilter, got %v", me.Kind)
	}
	if me.FilterReason != "flagged" {
		t.Errorf("Expected reason 'flagged', got %q", me.FilterReason)
	}
}

func TestGenerateChat_InvalidMessages(t *testing.T) {
	a := openRouterForServer(t, "http://127.0.0.1:0", 0)
	_, err := a.GenerateChat(context.Background(), nil, "", nil)

	var me *Error
	if !errors.As(err, &me) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if me.Kind != KindGeneric {
		t.Errorf("Expected KindGeneric for validation failure, got %v", me.Kind)
	}
}

func TestOpenRouter_CloseIdempotent(t *testing.T) {
	a := openRouterForServer(t, "http://127.0.0.1:0", 0)
	if err := a.Close(); err != nil {
		t.Fatalf("First Close failed: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}

func TestNew_Factory(t *testing.T) {
	s := testSettings()
	s.APIKey = "k"

	s.Provider = "openrouter"
	if _, err := New(s); err != nil {
		t.Errorf("Expected openrouter adapter, got error: %v", err)
	}

	s.Provider = "mock"
	a, err := New(s)
	if err != nil {
		t.Fatalf("Expected mock adapter, got error: %v", err)
	}
	if a.Name() != "mock" {
		t.Errorf("Expected mock adapter, got %s", a.Name())
	}

	s.Provider = "gpt4all"
	if _, err := New(s); err == nil {
		t.Error("Expected error for unsupported provider")
	}
}
