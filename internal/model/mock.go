package model

import (
	"context"
	"fmt"
	"sync"
)

// Mock is an in-memory Adapter used by tests and by deployments that run
// without provider credentials. Responses are keyed by the prepared
// prompt (or last user message); a configured failure error is returned
// verbatim when failure mode is on.
type Mock struct {
	settings Settings

	mu        sync.Mutex
	responses map[string]string
	failWith  error
	calls     int
}

func NewMock(s Settings) *Mock {
	return &Mock{settings: s, responses: make(map[string]string)}
}

func (m *Mock) Name() string { return "mock" }

// SetResponse registers a canned completion for a prompt.
func (m *Mock) SetResponse(key, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = response
}

// SetFailure makes every call fail with err; nil turns failure mode off.
func (m *Mock) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Calls reports how many generate operations reached the adapter. Cache
// tests use it to prove a hit never touches the network layer.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Mock) GenerateText(ctx context.Context, prompt string, modelName string, params *Parameters) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Classify(err, "generate_text", m.settings.resolve(modelName), m.settings.Timeout)
	}
	prepared := m.settings.PreparePrompt(prompt, modelName)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failWith != nil {
		return "", Classify(m.failWith, "generate_text", m.settings.resolve(modelName), m.settings.Timeout)
	}
	if r, ok := m.responses[prepared]; ok {
		return r, nil
	}
	return fmt.Sprintf("Mock response for: %s", prepared), nil
}

func (m *Mock) GenerateChat(ctx context.Context, messages []Message, modelName string, params *Parameters) (*Response, error) {
	const op = "generate_chat_completion"
	mn := m.settings.resolve(modelName)
	if err := ctx.Err(); err != nil {
		return nil, Classify(err, op, mn, m.settings.Timeout)
	}

	prepared, err := m.settings.PrepareMessages(messages, modelName)
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Op: op, Model: mn, Message: err.Error()}
	}

	var lastUser string
	for i := len(prepared) - 1; i >= 0; i-- {
		if prepared[i].Role == "user" {
			lastUser = prepared[i].Content
			break
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failWith != nil {
		return nil, Classify(m.failWith, op, mn, m.settings.Timeout)
	}

	content, ok := m.responses[lastUser]
	if !ok {
		content = fmt.Sprintf("Mock response for: %s", lastUser)
	}
	return &Response{
		Message:      Message{Role: "assistant", Content: content},
		Usage:        Usage{PromptTokens: len(lastUser) / 4, CompletionTokens: len(content) / 4, TotalTokens: (len(lastUser) + len(content)) / 4},
		Model:        mn,
		Provider:     m.Name(),
		FinishReason: "stop",
	}, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = make(map[string]string)
	return nil
}
