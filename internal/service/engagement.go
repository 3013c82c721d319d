package service

import (
	"context"
	"fmt"

	"github.com/tribeapp/ai-engine/internal/cache"
	"github.com/tribeapp/ai-engine/internal/model"
	"github.com/tribeapp/ai-engine/internal/usage"
)

var engagementOps = map[string]string{
	"conversation": "conversation",
	"challenge":    "challenge",
	"activity":     "activity",
}

// Engagement generates conversation prompts, challenges and activity
// suggestions that keep tribes active.
type Engagement struct {
	r *runner
}

func NewEngagement(adapter model.Adapter, store cache.Store, usageStore usage.Store) *Engagement {
	return &Engagement{r: newRunner(adapter, store, usageStore)}
}

// GenerateConversationPrompt produces a conversation starter for a
// tribe.
func (e *Engagement) GenerateConversationPrompt(ctx context.Context, tribeContext map[string]any, options map[string]any, modelName string) (any, error) {
	return e.r.run(ctx, "conversation", tribeContext, options, modelName)
}

// GenerateChallenge produces a group challenge.
func (e *Engagement) GenerateChallenge(ctx context.Context, tribeContext map[string]any, options map[string]any, modelName string) (any, error) {
	return e.r.run(ctx, "challenge", tribeContext, options, modelName)
}

// GenerateActivitySuggestion produces an activity matched to the tribe's
// location and interests.
func (e *Engagement) GenerateActivitySuggestion(ctx context.Context, tribeContext map[string]any, options map[string]any, modelName string) (any, error) {
	return e.r.run(ctx, "activity", tribeContext, options, modelName)
}

// GenerateEngagementContent dispatches on an engagement type name.
func (e *Engagement) GenerateEngagementContent(ctx context.Context, engagementType string, tribeContext, options map[string]any, modelName string) (any, error) {
	op, ok := engagementOps[engagementType]
	if !ok {
		return nil, fmt.Errorf("invalid engagement type: %q", engagementType)
	}
	return e.r.run(ctx, op, tribeContext, options, modelName)
}

// BatchGenerateEngagementContent generates content for many tribes
// concurrently.
func (e *Engagement) BatchGenerateEngagementContent(ctx context.Context, engagementType string, batch []map[string]any, options map[string]any, modelName string) ([]any, error) {
	op, ok := engagementOps[engagementType]
	if !ok {
		return nil, fmt.Errorf("invalid engagement type: %q", engagementType)
	}
	return e.r.runBatch(ctx, op, batch, options, modelName)
}

func (e *Engagement) Statistics() map[string]OperationStats { return e.r.Statistics() }
func (e *Engagement) ClearCache(ctx context.Context)        { e.r.ClearCache(ctx) }
func (e *Engagement) Close() error                          { return e.r.Close() }
