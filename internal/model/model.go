// Package model defines the capability interface for AI model providers,
// the closed error taxonomy for provider failures, and the retry engine
// shared by all concrete adapters.
package model

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Message is one entry in a chat conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Parameters controls generation behavior. Nil fields fall back to the
// per-model defaults from Settings.Models during preparation.
type Parameters struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	Stop             []string `json:"stop,omitempty"`
}

// Usage reports token consumption for a single completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the provider-agnostic result of a chat completion.
type Response struct {
	Message      Message `json:"message"`
	Usage        Usage   `json:"usage"`
	Model        string  `json:"model"`
	Provider     string  `json:"provider"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Adapter is the capability interface every model provider implements.
// All methods honor context cancellation and deadlines; a blocking call
// and a cooperatively-cancelled call share the same code path, so both
// produce identical Response and *Error semantics.
type Adapter interface {
	// GenerateText completes a single text prompt and returns the raw
	// generated text. An empty modelName selects the configured default.
	GenerateText(ctx context.Context, prompt string, modelName string, params *Parameters) (string, error)

	// GenerateChat completes a conversation. messages must be a non-empty
	// ordered list of role/content pairs; it is validated before any
	// network activity.
	GenerateChat(ctx context.Context, messages []Message, modelName string, params *Parameters) (*Response, error)

	// Name reports the provider identifier ("openrouter", "mock", ...).
	Name() string

	// Close releases pooled network connections. Safe to call more than
	// once; callers release the adapter with defer on every exit path.
	Close() error
}

// ModelConfig holds per-model generation defaults and limits.
type ModelConfig struct {
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	ContextWindow    int
	Capabilities     []string
}

// Settings carries everything an adapter needs: credentials, endpoint,
// timing knobs and the per-model configuration table.
type Settings struct {
	Provider     string
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	Models       map[string]ModelConfig
}

// resolve maps an empty model name to the configured default.
func (s Settings) resolve(modelName string) string {
	if modelName == "" {
		return s.DefaultModel
	}
	return modelName
}

// modelConfig returns the configuration for a model, falling back to
// conservative defaults for unknown models.
func (s Settings) modelConfig(modelName string) ModelConfig {
	if cfg, ok := s.Models[s.resolve(modelName)]; ok {
		return cfg
	}
	return ModelConfig{
		Temperature:   0.7,
		MaxTokens:     1000,
		TopP:          1.0,
		ContextWindow: 4096,
	}
}

// New builds an adapter for the configured provider. The openrouter
// adapter is wrapped in a circuit breaker; "mock" yields the in-memory
// test double.
func New(s Settings) (Adapter, error) {
	switch strings.ToLower(s.Provider) {
	case "", "openrouter":
		a, err := NewOpenRouter(s)
		if err != nil {
			return nil, err
		}
		return WithBreaker(a), nil
	case "mock":
		return NewMock(s), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %q (supported: openrouter, mock)", s.Provider)
	}
}
