package prompt

import (
	"strings"
	"testing"
)

func TestBuild_SystemAndUserMessages(t *testing.T) {
	msgs, err := Build("compatibility", map[string]any{"user_profile": map[string]any{"name": "sam"}}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "system" {
		t.Errorf("Expected first message role system, got %s", msgs[0].Role)
	}
	if msgs[1].Role != "user" {
		t.Errorf("Expected second message role user, got %s", msgs[1].Role)
	}
	if !strings.Contains(msgs[1].Content, "Input data:") {
		t.Error("Expected user message to embed the input data")
	}
	if !strings.Contains(msgs[1].Content, `"sam"`) {
		t.Error("Expected user message to contain the serialized data")
	}
	if strings.Contains(msgs[1].Content, "Options:") {
		t.Error("Expected no options block when options are empty")
	}
}

func TestBuild_IncludesOptions(t *testing.T) {
	msgs, err := Build("events", map[string]any{"city": "Austin"}, map[string]any{"max_results": 3})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(msgs[1].Content, "Options:") {
		t.Error("Expected options block")
	}
	if !strings.Contains(msgs[1].Content, "max_results") {
		t.Error("Expected serialized options in the user message")
	}
}

func TestBuild_UnknownOperation(t *testing.T) {
	if _, err := Build("nonsense", nil, nil); err == nil {
		t.Error("Expected error for unknown operation")
	}
}

func TestEmpty_MatchesFormat(t *testing.T) {
	if _, ok := Empty("user_tribes").([]any); !ok {
		t.Error("Expected empty array for array-shaped operation")
	}
	if _, ok := Empty("compatibility").(map[string]any); !ok {
		t.Error("Expected empty object for object-shaped operation")
	}
	// Unknown operations degrade to an object
	if _, ok := Empty("nonsense").(map[string]any); !ok {
		t.Error("Expected empty object for unknown operation")
	}
}

func TestSpecs_Complete(t *testing.T) {
	required := []string{
		"user_tribes", "tribe_formation", "compatibility",
		"assessment", "communication_style", "interests", "profile_update",
		"conversation", "challenge", "activity",
		"events", "venues", "weather_activities", "budget_options", "ranking",
	}
	for _, op := range required {
		spec, ok := Get(op)
		if !ok {
			t.Errorf("Missing spec for operation %q", op)
			continue
		}
		if spec.System == "" || spec.Instruction == "" {
			t.Errorf("Operation %q has an incomplete spec", op)
		}
		if spec.Format != FormatObject && spec.Format != FormatArray {
			t.Errorf("Operation %q has no response format", op)
		}
	}
	if len(Operations()) != len(required) {
		t.Errorf("Expected %d operations, got %d", len(required), len(Operations()))
	}
}
