package model

import (
	"strings"
	"testing"
)

func testSettings() Settings {
	return Settings{
		DefaultModel: "test/model",
		Models: map[string]ModelConfig{
			"test/model": {
				Temperature:   0.7,
				MaxTokens:     1000,
				TopP:          1.0,
				ContextWindow: 1000,
			},
		},
	}
}

func TestPrepareParameters_Defaults(t *testing.T) {
	s := testSettings()
	p := s.PrepareParameters(nil, "test/model")

	if *p.Temperature != 0.7 {
		t.Errorf("Expected default temperature 0.7, got %v", *p.Temperature)
	}
	if *p.MaxTokens != 1000 {
		t.Errorf("Expected default max_tokens 1000, got %v", *p.MaxTokens)
	}
	if *p.TopP != 1.0 {
		t.Errorf("Expected default top_p 1.0, got %v", *p.TopP)
	}
}

func TestPrepareParameters_MergeOverrides(t *testing.T) {
	s := testSettings()
	p := s.PrepareParameters(&Parameters{Temperature: f64ptr(1.2), Stop: []string{"END"}}, "test/model")

	if *p.Temperature != 1.2 {
		t.Errorf("Expected overridden temperature 1.2, got %v", *p.Temperature)
	}
	if *p.MaxTokens != 1000 {
		t.Errorf("Expected max_tokens to keep default 1000, got %v", *p.MaxTokens)
	}
	if len(p.Stop) != 1 || p.Stop[0] != "END" {
		t.Errorf("Expected stop sequence carried through, got %v", p.Stop)
	}
}

func TestPrepareParameters_Clamps(t *testing.T) {
	s := testSettings()
	p := s.PrepareParameters(&Parameters{Temperature: f64ptr(5.0), TopP: f64ptr(-1.0)}, "test/model")

	if *p.Temperature != 2.0 {
		t.Errorf("Expected temperature clamped to 2.0, got %v", *p.Temperature)
	}
	if *p.TopP != 0.01 {
		t.Errorf("Expected top_p clamped to 0.01, got %v", *p.TopP)
	}
}

func TestPrepareParameters_Idempotent(t *testing.T) {
	s := testSettings()
	first := s.PrepareParameters(&Parameters{Temperature: f64ptr(3.0), TopP: f64ptr(2.0)}, "test/model")
	second := s.PrepareParameters(&first, "test/model")

	if *first.Temperature != *second.Temperature || *first.TopP != *second.TopP {
		t.Errorf("Preparation is not idempotent: first (%v, %v), second (%v, %v)",
			*first.Temperature, *first.TopP, *second.Temperature, *second.TopP)
	}
}

func TestPreparePrompt_Truncates(t *testing.T) {
	s := testSettings()
	long := strings.Repeat("a", 2000)

	prepared := s.PreparePrompt(long, "test/model")

	if !strings.HasSuffix(prepared, truncationNote) {
		t.Error("Expected truncation note on oversized prompt")
	}
	if len(prepared) >= len(long) {
		t.Errorf("Expected prompt shortened, got %d >= %d", len(prepared), len(long))
	}
}

func TestPreparePrompt_ShortPassthrough(t *testing.T) {
	s := testSettings()
	if got := s.PreparePrompt("  hello  ", "test/model"); got != "hello" {
		t.Errorf("Expected trimmed passthrough, got %q", got)
	}
}

func TestPrepareMessages_RejectsEmpty(t *testing.T) {
	s := testSettings()
	if _, err := s.PrepareMessages(nil, "test/model"); err == nil {
		t.Error("Expected error for empty message list")
	}
	if _, err := s.PrepareMessages([]Message{{Role: "user"}}, "test/model"); err == nil {
		t.Error("Expected error for message without content")
	}
	if _, err := s.PrepareMessages([]Message{{Content: "hi"}}, "test/model"); err == nil {
		t.Error("Expected error for message without role")
	}
}

func TestPrepareMessages_KeepsSystemDropsOldest(t *testing.T) {
	s := testSettings()
	msgs := []Message{
		{Role: "system", Content: strings.Repeat("s", 100)},
		{Role: "user", Content: strings.Repeat("a", 800)},
		{Role: "assistant", Content: strings.Repeat("b", 500)},
		{Role: "user", Content: strings.Repeat("c", 300)},
	}

	out, err := s.PrepareMessages(msgs, "test/model")
	if err != nil {
		t.Fatalf("PrepareMessages failed: %v", err)
	}

	if out[0].Role != "system" || len(out[0].Content) != 100 {
		t.Error("Expected system message kept intact and first")
	}

	total := 0
	for _, m := range out {
		total += len(m.Content)
	}
	limit := 1000 * 9 / 10
	if total > limit+len(truncationNote) {
		t.Errorf("Expected total %d within budget %d", total, limit)
	}
}

func TestPrepareMessages_DoesNotMutateInput(t *testing.T) {
	s := testSettings()
	msgs := []Message{
		{Role: "user", Content: strings.Repeat("a", 2000)},
	}

	_, err := s.PrepareMessages(msgs, "test/model")
	if err != nil {
		t.Fatalf("PrepareMessages failed: %v", err)
	}
	if len(msgs[0].Content) != 2000 {
		t.Error("Expected caller's messages to be left unmodified")
	}
}
