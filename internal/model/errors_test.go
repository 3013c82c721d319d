package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type fakeNetError struct {
	timeout bool
}

func (e *fakeNetError) Error() string   { return "fake net error" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestClassify_DeadlineExceeded(t *testing.T) {
	err := Classify(context.DeadlineExceeded, "generate_text", "openai/gpt-4", 30*time.Second)

	if err.Kind != KindTimeout {
		t.Fatalf("Expected KindTimeout, got %v", err.Kind)
	}
	if err.Timeout != 30*time.Second {
		t.Errorf("Expected configured timeout 30s, got %s", err.Timeout)
	}
	if err.Op != "generate_text" || err.Model != "openai/gpt-4" {
		t.Errorf("Expected op and model populated, got op=%q model=%q", err.Op, err.Model)
	}
	if !err.Retryable() {
		t.Error("Timeout errors should be retryable")
	}
}

func TestClassify_NetTimeout(t *testing.T) {
	err := Classify(&fakeNetError{timeout: true}, "generate_chat_completion", "m", 5*time.Second)
	if err.Kind != KindTimeout {
		t.Fatalf("Expected KindTimeout, got %v", err.Kind)
	}
}

func TestClassify_ConnectionError(t *testing.T) {
	err := Classify(&fakeNetError{timeout: false}, "generate_chat_completion", "m", 5*time.Second)
	if err.Kind != KindGeneric {
		t.Fatalf("Expected KindGeneric, got %v", err.Kind)
	}
	if !err.Retryable() {
		t.Error("Connection errors should be retryable")
	}
}

func TestClassify_Authentication(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		err := Classify(&StatusError{Status: status}, "generate_text", "m", time.Second)
		if err.Kind != KindAuthentication {
			t.Errorf("Status %d: expected KindAuthentication, got %v", status, err.Kind)
		}
		if err.Retryable() {
			t.Errorf("Status %d: authentication errors must not be retryable", status)
		}
	}
}

func TestClassify_RateLimitWithRetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "30")
	err := Classify(&StatusError{Status: http.StatusTooManyRequests, Header: h}, "generate_text", "m", time.Second)

	if err.Kind != KindRateLimit {
		t.Fatalf("Expected KindRateLimit, got %v", err.Kind)
	}
	if err.RetryAfter != 30 {
		t.Errorf("Expected RetryAfter 30, got %d", err.RetryAfter)
	}
	if err.Retryable() {
		t.Error("Rate limit errors must not be retryable")
	}
}

func TestClassify_RateLimitWithoutHeader(t *testing.T) {
	err := Classify(&StatusError{Status: http.StatusTooManyRequests}, "generate_text", "m", time.Second)
	if err.Kind != KindRateLimit {
		t.Fatalf("Expected KindRateLimit, got %v", err.Kind)
	}
	if err.RetryAfter != 0 {
		t.Errorf("Expected RetryAfter 0 when header is absent, got %d", err.RetryAfter)
	}
}

func TestClassify_RateLimitBadHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "soon")
	err := Classify(&StatusError{Status: http.StatusTooManyRequests, Header: h}, "generate_text", "m", time.Second)
	if err.RetryAfter != 0 {
		t.Errorf("Expected RetryAfter 0 for unparsable header, got %d", err.RetryAfter)
	}
}

func TestClassify_ContentFilter(t *testing.T) {
	body := []byte(`{"error":{"type":"content_filter","message":"flagged content"}}`)
	err := Classify(&StatusError{Status: http.StatusBadRequest, Body: body}, "generate_chat_completion", "m", time.Second)

	if err.Kind != KindContentFilter {
		t.Fatalf("Expected KindContentFilter, got %v", err.Kind)
	}
	if err.FilterReason != "flagged content" {
		t.Errorf("Expected filter reason 'flagged content', got %q", err.FilterReason)
	}
	if err.Retryable() {
		t.Error("Content filter errors must not be retryable")
	}
}

func TestClassify_BadRequestWithoutFilterBody(t *testing.T) {
	body := []byte(`{"error":{"type":"invalid_request","message":"bad model"}}`)
	err := Classify(&StatusError{Status: http.StatusBadRequest, Body: body}, "generate_text", "m", time.Second)
	if err.Kind != KindGeneric {
		t.Fatalf("Expected KindGeneric for plain 400, got %v", err.Kind)
	}
}

func TestClassify_GenericHTTP(t *testing.T) {
	err := Classify(&StatusError{Status: http.StatusInternalServerError}, "generate_text", "m", time.Second)
	if err.Kind != KindGeneric {
		t.Fatalf("Expected KindGeneric, got %v", err.Kind)
	}
	if !err.Retryable() {
		t.Error("Generic HTTP errors should be retryable")
	}
}

func TestClassify_PassthroughTypedError(t *testing.T) {
	orig := &Error{Kind: KindRateLimit, Op: "generate_text", Model: "m", RetryAfter: 7}
	err := Classify(fmt.Errorf("wrapped: %w", orig), "other_op", "other_model", time.Second)
	if err != orig {
		t.Fatal("Expected classification to pass an existing *Error through unchanged")
	}
}

func TestClassify_PlainError(t *testing.T) {
	err := Classify(errors.New("something broke"), "generate_text", "m", time.Second)
	if err.Kind != KindGeneric {
		t.Fatalf("Expected KindGeneric, got %v", err.Kind)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindGeneric:        "model_error",
		KindTimeout:        "timeout",
		KindAuthentication: "authentication",
		KindRateLimit:      "rate_limit",
		KindContentFilter:  "content_filter",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind %d: expected %q, got %q", kind, want, got)
		}
	}
}
