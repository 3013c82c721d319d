package service

import (
	"context"
	"fmt"

	"github.com/tribeapp/ai-engine/internal/cache"
	"github.com/tribeapp/ai-engine/internal/model"
	"github.com/tribeapp/ai-engine/internal/usage"
)

var recommendationOps = map[string]string{
	"events":             "events",
	"venues":             "venues",
	"weather_activities": "weather_activities",
	"budget_options":     "budget_options",
}

// Recommendation suggests events, venues and activities tailored to a
// user or tribe.
type Recommendation struct {
	r *runner
}

func NewRecommendation(adapter model.Adapter, store cache.Store, usageStore usage.Store) *Recommendation {
	return &Recommendation{r: newRunner(adapter, store, usageStore)}
}

// RecommendEvents suggests local events for a user.
func (r *Recommendation) RecommendEvents(ctx context.Context, userData, ctxData map[string]any, options map[string]any, modelName string) (any, error) {
	data := map[string]any{"user_data": userData, "context": ctxData}
	return r.r.run(ctx, "events", data, options, modelName)
}

// RecommendVenues suggests venues matching interests and budget.
func (r *Recommendation) RecommendVenues(ctx context.Context, userData, ctxData map[string]any, options map[string]any, modelName string) (any, error) {
	data := map[string]any{"user_data": userData, "context": ctxData}
	return r.r.run(ctx, "venues", data, options, modelName)
}

// RecommendWeatherBasedActivities suggests activities suited to current
// weather conditions.
func (r *Recommendation) RecommendWeatherBasedActivities(ctx context.Context, userData, ctxData map[string]any, options map[string]any, modelName string) (any, error) {
	data := map[string]any{"user_data": userData, "context": ctxData}
	return r.r.run(ctx, "weather_activities", data, options, modelName)
}

// RecommendBudgetOptions suggests low-cost options within a stated
// budget.
func (r *Recommendation) RecommendBudgetOptions(ctx context.Context, userData, ctxData map[string]any, options map[string]any, modelName string) (any, error) {
	data := map[string]any{"user_data": userData, "context": ctxData}
	return r.r.run(ctx, "budget_options", data, options, modelName)
}

// GenerateRecommendations dispatches on a recommendation type name.
func (r *Recommendation) GenerateRecommendations(ctx context.Context, recommendationType string, userData, ctxData, options map[string]any, modelName string) (any, error) {
	op, ok := recommendationOps[recommendationType]
	if !ok {
		return nil, fmt.Errorf("invalid recommendation type: %q", recommendationType)
	}
	data := map[string]any{"user_data": userData, "context": ctxData}
	return r.r.run(ctx, op, data, options, modelName)
}

// BatchGenerateRecommendations generates recommendations for many users
// concurrently.
func (r *Recommendation) BatchGenerateRecommendations(ctx context.Context, recommendationType string, batch []map[string]any, options map[string]any, modelName string) ([]any, error) {
	op, ok := recommendationOps[recommendationType]
	if !ok {
		return nil, fmt.Errorf("invalid recommendation type: %q", recommendationType)
	}
	return r.r.runBatch(ctx, op, batch, options, modelName)
}

// RankRecommendations orders candidate items by relevance to the user.
func (r *Recommendation) RankRecommendations(ctx context.Context, userData map[string]any, items []map[string]any, options map[string]any, modelName string) (any, error) {
	data := map[string]any{"user_data": userData, "items": items}
	return r.r.run(ctx, "ranking", data, options, modelName)
}

func (r *Recommendation) Statistics() map[string]OperationStats { return r.r.Statistics() }
func (r *Recommendation) ClearCache(ctx context.Context)        { r.r.ClearCache(ctx) }
func (r *Recommendation) Close() error                          { return r.r.Close() }
