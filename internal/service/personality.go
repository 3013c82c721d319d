package service

import (
	"context"
	"fmt"

	"github.com/tribeapp/ai-engine/internal/cache"
	"github.com/tribeapp/ai-engine/internal/model"
	"github.com/tribeapp/ai-engine/internal/usage"
)

var personalityOps = map[string]string{
	"assessment":          "assessment",
	"communication_style": "communication_style",
	"interests":           "interests",
	"profile_update":      "profile_update",
}

// Personality derives trait profiles, communication styles and interest
// maps from assessment and behavior data.
type Personality struct {
	r *runner
}

func NewPersonality(adapter model.Adapter, store cache.Store, usageStore usage.Store) *Personality {
	return &Personality{r: newRunner(adapter, store, usageStore)}
}

// AnalyzeAssessment turns raw assessment answers into a trait profile.
func (p *Personality) AnalyzeAssessment(ctx context.Context, assessmentData map[string]any, options map[string]any, modelName string) (any, error) {
	return p.r.run(ctx, "assessment", assessmentData, options, modelName)
}

// AnalyzeCommunicationStyle classifies how a user communicates based on
// interaction history.
func (p *Personality) AnalyzeCommunicationStyle(ctx context.Context, interactionData map[string]any, options map[string]any, modelName string) (any, error) {
	return p.r.run(ctx, "communication_style", interactionData, options, modelName)
}

// AnalyzeInterests extracts categorized interests from profile text.
func (p *Personality) AnalyzeInterests(ctx context.Context, profileData map[string]any, options map[string]any, modelName string) (any, error) {
	return p.r.run(ctx, "interests", profileData, options, modelName)
}

// UpdateProfileFromBehavior revises an existing profile given newly
// observed behavior.
func (p *Personality) UpdateProfileFromBehavior(ctx context.Context, currentProfile, behaviorData map[string]any, options map[string]any, modelName string) (any, error) {
	data := map[string]any{"current_profile": currentProfile, "behavior_data": behaviorData}
	return p.r.run(ctx, "profile_update", data, options, modelName)
}

// PerformAnalysis dispatches on an analysis type name.
func (p *Personality) PerformAnalysis(ctx context.Context, analysisType string, data, options map[string]any, modelName string) (any, error) {
	op, ok := personalityOps[analysisType]
	if !ok {
		return nil, fmt.Errorf("invalid analysis type: %q", analysisType)
	}
	return p.r.run(ctx, op, data, options, modelName)
}

// BatchPerformAnalysis analyzes many inputs concurrently.
func (p *Personality) BatchPerformAnalysis(ctx context.Context, analysisType string, batch []map[string]any, options map[string]any, modelName string) ([]any, error) {
	op, ok := personalityOps[analysisType]
	if !ok {
		return nil, fmt.Errorf("invalid analysis type: %q", analysisType)
	}
	return p.r.runBatch(ctx, op, batch, options, modelName)
}

func (p *Personality) Statistics() map[string]OperationStats { return p.r.Statistics() }
func (p *Personality) ClearCache(ctx context.Context)        { p.r.ClearCache(ctx) }
func (p *Personality) Close() error                          { return p.r.Close() }
