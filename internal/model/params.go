package model

import (
	"errors"
	"strings"
)

const truncationNote = "\n[Note: prompt has been truncated to fit model context window]"

// PreparePrompt trims a prompt and truncates it to 90% of the model's
// context window, leaving room for the response.
func (s Settings) PreparePrompt(prompt, modelName string) string {
	cfg := s.modelConfig(modelName)

	cleaned := strings.TrimSpace(prompt)
	limit := cfg.ContextWindow * 9 / 10
	if limit > 0 && len(cleaned) > limit {
		cleaned = cleaned[:limit] + truncationNote
	}
	return cleaned
}

// PrepareMessages validates and size-limits a conversation. Every entry
// must carry a role and content. When the combined length exceeds 90% of
// the context window, system messages are kept intact and the oldest
// non-system messages are dropped, then the surviving oldest one is
// truncated if still over budget.
func (s Settings) PrepareMessages(messages []Message, modelName string) ([]Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("messages must be a non-empty list")
	}
	for _, m := range messages {
		if m.Role == "" || m.Content == "" {
			return nil, errors.New("each message must have non-empty role and content")
		}
	}

	cfg := s.modelConfig(modelName)
	limit := cfg.ContextWindow * 9 / 10

	out := make([]Message, len(messages))
	copy(out, messages)

	total := 0
	for _, m := range out {
		total += len(m.Content)
	}
	if limit > 0 && total > limit {
		var system, rest []Message
		for _, m := range out {
			if m.Role == "system" {
				system = append(system, m)
			} else {
				rest = append(rest, m)
			}
		}
		systemLen := 0
		for _, m := range system {
			systemLen += len(m.Content)
		}
		budget := limit - systemLen

		restLen := func() int {
			n := 0
			for _, m := range rest {
				n += len(m.Content)
			}
			return n
		}
		for len(rest) > 0 && budget <= 0 {
			rest = rest[1:]
			budget = limit - systemLen
		}
		if len(rest) > 0 && restLen() > budget {
			tailLen := 0
			for _, m := range rest[1:] {
				tailLen += len(m.Content)
			}
			keep := budget - tailLen
			if keep < 0 {
				keep = 0
			}
			if keep < len(rest[0].Content) {
				rest[0].Content = rest[0].Content[:keep] + truncationNote
			}
		}
		out = append(system, rest...)
	}

	return out, nil
}

// PrepareParameters merges caller-supplied parameters over the model's
// configured defaults and clamps out-of-range values instead of
// rejecting them: temperature to [0,2], top_p to (0,1]. The operation is
// idempotent; in-range values pass through unchanged.
func (s Settings) PrepareParameters(p *Parameters, modelName string) Parameters {
	cfg := s.modelConfig(modelName)

	out := Parameters{
		Temperature:      f64ptr(cfg.Temperature),
		MaxTokens:        intptr(cfg.MaxTokens),
		TopP:             f64ptr(cfg.TopP),
		FrequencyPenalty: f64ptr(cfg.FrequencyPenalty),
		PresencePenalty:  f64ptr(cfg.PresencePenalty),
	}
	if p != nil {
		if p.Temperature != nil {
			out.Temperature = f64ptr(*p.Temperature)
		}
		if p.MaxTokens != nil {
			out.MaxTokens = intptr(*p.MaxTokens)
		}
		if p.TopP != nil {
			out.TopP = f64ptr(*p.TopP)
		}
		if p.FrequencyPenalty != nil {
			out.FrequencyPenalty = f64ptr(*p.FrequencyPenalty)
		}
		if p.PresencePenalty != nil {
			out.PresencePenalty = f64ptr(*p.PresencePenalty)
		}
		if len(p.Stop) > 0 {
			out.Stop = append([]string(nil), p.Stop...)
		}
	}

	*out.Temperature = clamp(*out.Temperature, 0, 2)
	*out.TopP = clamp(*out.TopP, 0.01, 1)

	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func f64ptr(v float64) *float64 { return &v }
func intptr(v int) *int         { return &v }
