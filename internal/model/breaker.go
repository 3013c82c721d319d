package model

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// WithBreaker wraps an adapter in a circuit breaker so a hard-down
// provider fails fast instead of burning the retry budget on every call.
// Breaker rejections surface as generic adapter errors.
func WithBreaker(inner Adapter) Adapter {
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &breakerAdapter{inner: inner, cb: gobreaker.NewCircuitBreaker(settings)}
}

type breakerAdapter struct {
	inner Adapter
	cb    *gobreaker.CircuitBreaker
}

func (b *breakerAdapter) Name() string { return b.inner.Name() }

func (b *breakerAdapter) Close() error { return b.inner.Close() }

func (b *breakerAdapter) GenerateText(ctx context.Context, prompt string, modelName string, params *Parameters) (string, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.GenerateText(ctx, prompt, modelName, params)
	})
	if err != nil {
		return "", b.wrap(err, "generate_text", modelName)
	}
	return result.(string), nil
}

func (b *breakerAdapter) GenerateChat(ctx context.Context, messages []Message, modelName string, params *Parameters) (*Response, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.GenerateChat(ctx, messages, modelName, params)
	})
	if err != nil {
		return nil, b.wrap(err, "generate_chat_completion", modelName)
	}
	return result.(*Response), nil
}

// wrap keeps already-classified adapter errors intact and converts
// breaker rejections into the closed taxonomy.
func (b *breakerAdapter) wrap(err error, op, modelName string) error {
	var me *Error
	if errors.As(err, &me) {
		return me
	}
	if modelName == "" {
		modelName = "default"
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Kind: KindGeneric, Op: op, Model: modelName, Message: "provider circuit open: " + err.Error()}
	}
	return &Error{Kind: KindGeneric, Op: op, Model: modelName, Message: err.Error()}
}
