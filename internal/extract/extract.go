// Package extract recovers structured JSON payloads from free-form model
// output. Models wrap JSON in prose, markdown fences or commentary;
// extraction tolerates all of these and reports failure as data, never
// as an error.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// JSON pulls the first well-formed JSON object or array out of text.
// Search order: fenced code blocks whose content starts with '{' or '[',
// then the widest brace- or bracket-delimited span. Returns (nil, false)
// when no parseable candidate exists.
func JSON(text string) (any, bool) {
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		if !strings.HasPrefix(candidate, "{") && !strings.HasPrefix(candidate, "[") {
			continue
		}
		if v, ok := parse(candidate); ok {
			return v, true
		}
	}

	if candidate, ok := braceSpan(text); ok {
		if v, ok := parse(candidate); ok {
			return v, true
		}
	}

	return nil, false
}

// braceSpan finds the span from the first '{' to the last '}' (or '[' to
// ']' when no object is present).
func braceSpan(text string) (string, bool) {
	open, close := "{", "}"
	if !strings.Contains(text, "{") {
		open, close = "[", "]"
	}
	start := strings.Index(text, open)
	end := strings.LastIndex(text, close)
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func parse(candidate string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, true
	default:
		return nil, false
	}
}

// Object asserts that v is a JSON object and that every required key is
// present. Callers substitute an empty default on failure rather than
// failing the request.
func Object(v any, required ...string) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, key := range required {
		if _, ok := obj[key]; !ok {
			return nil, false
		}
	}
	return obj, true
}

// Array asserts that v is a JSON array.
func Array(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}
