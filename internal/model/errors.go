package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Kind enumerates the closed set of adapter failure modes. No other
// error type crosses the adapter boundary.
type Kind int

const (
	KindGeneric Kind = iota
	KindTimeout
	KindAuthentication
	KindRateLimit
	KindContentFilter
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindContentFilter:
		return "content_filter"
	default:
		return "model_error"
	}
}

// Error is the single typed error surfaced by adapters. Op and Model are
// always populated; the remaining fields are kind-specific.
type Error struct {
	Kind    Kind
	Op      string // operation being performed, e.g. "generate_chat_completion"
	Model   string
	Message string

	Timeout      time.Duration // KindTimeout: the configured request timeout
	RetryAfter   int           // KindRateLimit: seconds from the retry-after header, 0 when absent
	FilterReason string        // KindContentFilter: provider reason, may be empty
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("request timed out after %s in %s using model %s: %s", e.Timeout, e.Op, e.Model, e.Message)
	case KindAuthentication:
		return fmt.Sprintf("authentication error in %s using model %s: %s", e.Op, e.Model, e.Message)
	case KindRateLimit:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("rate limit exceeded in %s using model %s, retry after %ds: %s", e.Op, e.Model, e.RetryAfter, e.Message)
		}
		return fmt.Sprintf("rate limit exceeded in %s using model %s: %s", e.Op, e.Model, e.Message)
	case KindContentFilter:
		if e.FilterReason != "" {
			return fmt.Sprintf("content filtered in %s using model %s (reason: %s): %s", e.Op, e.Model, e.FilterReason, e.Message)
		}
		return fmt.Sprintf("content filtered in %s using model %s: %s", e.Op, e.Model, e.Message)
	default:
		return fmt.Sprintf("error in %s using model %s: %s", e.Op, e.Model, e.Message)
	}
}

// Retryable reports whether the retry engine may attempt the operation
// again. Authentication, rate-limit and content-filter failures never
// improve on retry.
func (e *Error) Retryable() bool {
	return e.Kind == KindGeneric || e.Kind == KindTimeout
}

// StatusError is the transport-layer error produced by an adapter when
// the provider answers with a non-2xx status. It exists only to feed the
// classifier; it never escapes the model package.
type StatusError struct {
	Status int
	Header http.Header
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, truncate(string(e.Body), 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Classify maps a raw transport or library error onto exactly one Error
// variant. Order matters: timeout, then connection failure, then
// status-derived kinds (401/403, 429, 400 with a content_filter body),
// falling through to generic.
func Classify(err error, op, modelName string, timeout time.Duration) *Error {
	var me *Error
	if errors.As(err, &me) {
		return me
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: op, Model: modelName, Message: err.Error(), Timeout: timeout}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return &Error{Kind: KindTimeout, Op: op, Model: modelName, Message: err.Error(), Timeout: timeout}
		}
		return &Error{Kind: KindGeneric, Op: op, Model: modelName, Message: "connection error: " + err.Error()}
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden:
			return &Error{Kind: KindAuthentication, Op: op, Model: modelName, Message: err.Error()}
		case se.Status == http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimit, Op: op, Model: modelName, Message: err.Error(), RetryAfter: retryAfterSeconds(se.Header)}
		case se.Status == http.StatusBadRequest:
			if reason, ok := contentFilterReason(se.Body); ok {
				return &Error{Kind: KindContentFilter, Op: op, Model: modelName, Message: "content filtered: " + reason, FilterReason: reason}
			}
			return &Error{Kind: KindGeneric, Op: op, Model: modelName, Message: fmt.Sprintf("HTTP error %d: %s", se.Status, err.Error())}
		default:
			return &Error{Kind: KindGeneric, Op: op, Model: modelName, Message: fmt.Sprintf("HTTP error %d: %s", se.Status, err.Error())}
		}
	}

	return &Error{Kind: KindGeneric, Op: op, Model: modelName, Message: err.Error()}
}

// retryAfterSeconds reads the retry-after header as integer seconds.
// Absent or unparsable values yield 0 (unset).
func retryAfterSeconds(h http.Header) int {
	if h == nil {
		return 0
	}
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}

// contentFilterReason inspects a 400 body for {"error":{"type":
// "content_filter","message":...}}.
func contentFilterReason(body []byte) (string, bool) {
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	if payload.Error.Type != "content_filter" {
		return "", false
	}
	reason := payload.Error.Message
	if reason == "" {
		reason = "content filtered"
	}
	return reason, true
}
