// Package prompt builds the chat messages sent for each AI operation and
// declares the response shape each operation expects back.
package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/tribeapp/ai-engine/internal/model"
)

// Format is the expected top-level JSON shape of a model reply.
type Format string

const (
	FormatObject Format = "object"
	FormatArray  Format = "array"
)

// Spec describes one operation's prompt and its response contract.
type Spec struct {
	System      string
	Instruction string
	Format      Format
	Required    []string // top-level keys required when Format is object
}

const system = "You are an AI assistant for the Tribe platform, which helps people form meaningful local connections. Always respond with valid JSON and nothing else."

var specs = map[string]Spec{
	// Matching
	"user_tribes": {
		System:      system,
		Instruction: "Match the user to the most compatible tribes. Respond with a JSON array of {tribe_id, compatibility_score (0-1), reasons}.",
		Format:      FormatArray,
	},
	"tribe_formation": {
		System:      system,
		Instruction: "Group the given users into balanced tribes of 4-8 members. Respond with a JSON array of {members, balance_score, rationale}.",
		Format:      FormatArray,
	},
	"compatibility": {
		System:      system,
		Instruction: "Score the compatibility between the user and the tribe. Respond with a JSON object {overall_score (0-1), dimensions, explanation}.",
		Format:      FormatObject,
		Required:    []string{"overall_score"},
	},

	// Personality
	"assessment": {
		System:      system,
		Instruction: "Analyze the personality assessment answers. Respond with a JSON object {traits: {openness, conscientiousness, extraversion, agreeableness, neuroticism}, summary}.",
		Format:      FormatObject,
		Required:    []string{"traits"},
	},
	"communication_style": {
		System:      system,
		Instruction: "Determine the user's communication style (direct, analytical, intuitive or functional) from the interaction data. Respond with a JSON object {style, confidence, indicators}.",
		Format:      FormatObject,
		Required:    []string{"style"},
	},
	"interests": {
		System:      system,
		Instruction: "Extract the user's interests grouped by category. Respond with a JSON object {interests: [{category, items, strength}]}.",
		Format:      FormatObject,
		Required:    []string{"interests"},
	},
	"profile_update": {
		System:      system,
		Instruction: "Update the personality profile given the observed behavior. Respond with the full updated profile as a JSON object {traits, summary}.",
		Format:      FormatObject,
		Required:    []string{"traits"},
	},

	// Engagement
	"conversation": {
		System:      system,
		Instruction: "Generate a conversation starter for this tribe. Respond with a JSON object {prompt, topic, follow_ups}.",
		Format:      FormatObject,
		Required:    []string{"prompt"},
	},
	"challenge": {
		System:      system,
		Instruction: "Generate a group challenge (social, creative, intellectual or physical). Respond with a JSON object {challenge, type, duration, instructions}.",
		Format:      FormatObject,
		Required:    []string{"challenge"},
	},
	"activity": {
		System:      system,
		Instruction: "Suggest an activity for this tribe given their location and interests. Respond with a JSON object {activity, category, description, requirements}.",
		Format:      FormatObject,
		Required:    []string{"activity"},
	},

	// Recommendations
	"events": {
		System:      system,
		Instruction: "Recommend local events for the user. Respond with a JSON array of {name, event_type, venue, date, relevance_score, reason}.",
		Format:      FormatArray,
	},
	"venues": {
		System:      system,
		Instruction: "Recommend venues suited to this tribe's interests and budget. Respond with a JSON array of {name, category, price_level, relevance_score, reason}.",
		Format:      FormatArray,
	},
	"weather_activities": {
		System:      system,
		Instruction: "Recommend activities appropriate for the current weather. Respond with a JSON array of {activity, indoor, relevance_score, reason}.",
		Format:      FormatArray,
	},
	"budget_options": {
		System:      system,
		Instruction: "Recommend low-cost or free options matching the stated budget. Respond with a JSON array of {option, estimated_cost, relevance_score, reason}.",
		Format:      FormatArray,
	},
	"ranking": {
		System:      system,
		Instruction: "Rank the candidate items by relevance to the user. Respond with a JSON array of {id, rank, score}.",
		Format:      FormatArray,
	},
}

// Get returns the spec for an operation.
func Get(operation string) (Spec, bool) {
	s, ok := specs[operation]
	return s, ok
}

// Operations lists the known operation names (useful for validation
// messages).
func Operations() []string {
	out := make([]string, 0, len(specs))
	for name := range specs {
		out = append(out, name)
	}
	return out
}

// Build assembles the chat messages for an operation: the platform
// system message, then a user message embedding the input data and
// options as JSON.
func Build(operation string, data, options map[string]any) ([]model.Message, error) {
	spec, ok := specs[operation]
	if !ok {
		return nil, fmt.Errorf("unknown operation: %q", operation)
	}

	dataJSON, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding input data: %w", err)
	}

	content := fmt.Sprintf("%s\n\nInput data:\n```json\n%s\n```", spec.Instruction, dataJSON)
	if len(options) > 0 {
		optJSON, err := json.MarshalIndent(options, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding options: %w", err)
		}
		content += fmt.Sprintf("\n\nOptions:\n```json\n%s\n```", optJSON)
	}

	return []model.Message{
		{Role: "system", Content: spec.System},
		{Role: "user", Content: content},
	}, nil
}

// Empty returns the neutral degraded result for an operation: an empty
// object or empty array matching its expected shape.
func Empty(operation string) any {
	if spec, ok := specs[operation]; ok && spec.Format == FormatArray {
		return []any{}
	}
	return map[string]any{}
}
