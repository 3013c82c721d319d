package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// OpenRouter calls the OpenRouter REST API. One instance owns one
// pooled HTTP transport; it is the single recovery boundary for
// transport failures, so callers above it only ever see *Error.
type OpenRouter struct {
	settings Settings
	client   *http.Client
	retry    retrier

	closeOnce sync.Once
}

// NewOpenRouter validates settings and opens a persistent session.
func NewOpenRouter(s Settings) (*OpenRouter, error) {
	if s.APIKey == "" {
		return nil, errors.New("openrouter: API key is required (set OPENROUTER_API_KEY)")
	}
	if s.BaseURL == "" {
		s.BaseURL = "https://openrouter.ai"
	}

	a := &OpenRouter{
		settings: s,
		client: &http.Client{
			Timeout:   s.Timeout,
			Transport: &http.Transport{MaxIdleConnsPerHost: 8},
		},
		retry: newRetrier(s.MaxRetries, s.RetryDelay),
	}
	log.Printf("openrouter: adapter initialized (timeout: %s, max_retries: %d)", s.Timeout, s.MaxRetries)
	return a, nil
}

func (a *OpenRouter) Name() string { return "openrouter" }

// Close releases idle pooled connections. Idempotent.
func (a *OpenRouter) Close() error {
	a.closeOnce.Do(func() {
		if t, ok := a.client.Transport.(*http.Transport); ok {
			t.CloseIdleConnections()
		}
	})
	return nil
}

type textPayload struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Parameters
}

type chatPayload struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Parameters
}

// apiResponse covers both completion and chat completion bodies.
type apiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Text         string  `json:"text"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

func (a *OpenRouter) GenerateText(ctx context.Context, prompt string, modelName string, params *Parameters) (string, error) {
	const op = "generate_text"
	mn := a.settings.resolve(modelName)

	payload := textPayload{
		Model:      mn,
		Prompt:     a.settings.PreparePrompt(prompt, modelName),
		Parameters: a.settings.PrepareParameters(params, modelName),
	}

	requestID := uuid.New().String()
	log.Printf("openrouter: text generation request %s with model %s", requestID, mn)

	var text string
	err := a.retry.do(ctx, op, mn, a.settings.Timeout, func(ctx context.Context) error {
		result, err := a.post(ctx, "/api/v1/completions", payload)
		if err != nil {
			return err
		}
		if len(result.Choices) == 0 {
			return &Error{Kind: KindGeneric, Op: op, Model: mn, Message: "invalid response format from OpenRouter API"}
		}
		text = result.Choices[0].Text
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (a *OpenRouter) GenerateChat(ctx context.Context, messages []Message, modelName string, params *Parameters) (*Response, error) {
	const op = "generate_chat_completion"
	mn := a.settings.resolve(modelName)

	prepared, err := a.settings.PrepareMessages(messages, modelName)
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Op: op, Model: mn, Message: err.Error()}
	}
	payload := chatPayload{
		Model:      mn,
		Messages:   prepared,
		Parameters: a.settings.PrepareParameters(params, modelName),
	}

	requestID := uuid.New().String()
	log.Printf("openrouter: chat completion request %s with model %s (%d messages)", requestID, mn, len(prepared))

	var resp *Response
	err = a.retry.do(ctx, op, mn, a.settings.Timeout, func(ctx context.Context) error {
		result, err := a.post(ctx, "/api/v1/chat/completions", payload)
		if err != nil {
			return err
		}
		resp = a.formatChatResponse(result, mn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// post issues one attempt against the API. Non-2xx statuses come back as
// *StatusError so the classifier can see status, headers and body.
func (a *OpenRouter) post(ctx context.Context, path string, payload any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.settings.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.settings.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://tribe.app")
	req.Header.Set("X-Title", "Tribe App")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return nil, &StatusError{Status: resp.StatusCode, Header: resp.Header, Body: respBody}
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}

// formatChatResponse lifts the raw API body into the provider-agnostic
// Response shape.
func (a *OpenRouter) formatChatResponse(result *apiResponse, modelName string) *Response {
	resp := &Response{
		Message:  Message{Role: "assistant"},
		Usage:    result.Usage,
		Model:    result.Model,
		Provider: a.Name(),
	}
	if resp.Model == "" {
		resp.Model = modelName
	}
	if len(result.Choices) > 0 {
		if result.Choices[0].Message.Content != "" || result.Choices[0].Message.Role != "" {
			resp.Message = result.Choices[0].Message
		}
		resp.FinishReason = result.Choices[0].FinishReason
	}
	return resp
}
