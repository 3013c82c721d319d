package service

import (
	"context"
	"fmt"

	"github.com/tribeapp/ai-engine/internal/cache"
	"github.com/tribeapp/ai-engine/internal/model"
	"github.com/tribeapp/ai-engine/internal/usage"
)

// matchingOps maps the public matching type names onto prompt
// operations.
var matchingOps = map[string]string{
	"user_tribes":     "user_tribes",
	"tribe_formation": "tribe_formation",
	"compatibility":   "compatibility",
}

// Matching finds compatible tribes for users and forms new ones.
type Matching struct {
	r *runner
}

func NewMatching(adapter model.Adapter, store cache.Store, usageStore usage.Store) *Matching {
	return &Matching{r: newRunner(adapter, store, usageStore)}
}

// MatchUserToTribes ranks existing tribes by compatibility with a user.
func (m *Matching) MatchUserToTribes(ctx context.Context, userProfile map[string]any, tribes []map[string]any, options map[string]any, modelName string) (any, error) {
	data := map[string]any{"user_profile": userProfile, "tribes": tribes}
	return m.r.run(ctx, "user_tribes", data, options, modelName)
}

// FormTribes groups a pool of users into balanced tribes.
func (m *Matching) FormTribes(ctx context.Context, userProfiles []map[string]any, options map[string]any, modelName string) (any, error) {
	data := map[string]any{"user_profiles": userProfiles}
	return m.r.run(ctx, "tribe_formation", data, options, modelName)
}

// CalculateCompatibility scores one user against one tribe.
func (m *Matching) CalculateCompatibility(ctx context.Context, userProfile, tribe map[string]any, options map[string]any, modelName string) (any, error) {
	data := map[string]any{"user_profile": userProfile, "tribe": tribe}
	return m.r.run(ctx, "compatibility", data, options, modelName)
}

// PerformMatching dispatches on a matching type name; the HTTP layer
// calls this form.
func (m *Matching) PerformMatching(ctx context.Context, matchingType string, data, options map[string]any, modelName string) (any, error) {
	op, ok := matchingOps[matchingType]
	if !ok {
		return nil, fmt.Errorf("invalid matching type: %q", matchingType)
	}
	return m.r.run(ctx, op, data, options, modelName)
}

// BatchPerformMatching runs one matching operation over many inputs
// concurrently, returning results positionally.
func (m *Matching) BatchPerformMatching(ctx context.Context, matchingType string, batch []map[string]any, options map[string]any, modelName string) ([]any, error) {
	op, ok := matchingOps[matchingType]
	if !ok {
		return nil, fmt.Errorf("invalid matching type: %q", matchingType)
	}
	return m.r.runBatch(ctx, op, batch, options, modelName)
}

func (m *Matching) Statistics() map[string]OperationStats { return m.r.Statistics() }
func (m *Matching) ClearCache(ctx context.Context)        { m.r.ClearCache(ctx) }
func (m *Matching) Close() error                          { return m.r.Close() }
