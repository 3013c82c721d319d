// Package service hosts the domain facades (matching, personality,
// engagement, recommendation). Each operation runs the same pipeline:
// cache lookup, chat completion, JSON extraction, shape validation,
// cache store. Malformed model replies degrade to an empty default so a
// single bad completion never fails a request or a batch.
package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/tribeapp/ai-engine/internal/auth"
	"github.com/tribeapp/ai-engine/internal/cache"
	"github.com/tribeapp/ai-engine/internal/extract"
	"github.com/tribeapp/ai-engine/internal/model"
	"github.com/tribeapp/ai-engine/internal/prompt"
	"github.com/tribeapp/ai-engine/internal/usage"
)

// OperationStats counts outcomes per operation type.
type OperationStats struct {
	Requests  int `json:"requests"`
	CacheHits int `json:"cache_hits"`
	Degraded  int `json:"degraded"` // extraction or shape failures substituted with empty results
	Errors    int `json:"errors"`
}

// runner is the shared engine behind every facade.
type runner struct {
	adapter model.Adapter
	store   cache.Store // nil disables caching
	usage   usage.Store // nil disables usage accounting

	mu    sync.Mutex
	stats map[string]*OperationStats
}

func newRunner(adapter model.Adapter, store cache.Store, usageStore usage.Store) *runner {
	return &runner{adapter: adapter, store: store, usage: usageStore, stats: make(map[string]*OperationStats)}
}

// run executes one operation end to end. The returned value is either
// the model's validated payload or the operation's empty default; err is
// non-nil only for input validation failures and adapter errors.
func (r *runner) run(ctx context.Context, operation string, data, options map[string]any, modelName string) (any, error) {
	spec, ok := prompt.Get(operation)
	if !ok {
		return nil, fmt.Errorf("unknown operation: %q", operation)
	}

	started := time.Now()
	key := cache.Fingerprint(operation, data, options, modelName)
	if r.store != nil {
		if v, ok := r.store.Get(ctx, key); ok {
			r.record(operation, func(s *OperationStats) { s.Requests++; s.CacheHits++ })
			r.account(ctx, operation, modelName, nil, true, started)
			return v, nil
		}
	}

	messages, err := prompt.Build(operation, data, options)
	if err != nil {
		r.record(operation, func(s *OperationStats) { s.Requests++; s.Errors++ })
		return nil, err
	}

	resp, err := r.adapter.GenerateChat(ctx, messages, modelName, nil)
	if err != nil {
		r.record(operation, func(s *OperationStats) { s.Requests++; s.Errors++ })
		return nil, err
	}
	r.account(ctx, operation, modelName, resp, false, started)

	result, degraded := shape(operation, spec, resp.Message.Content)
	r.record(operation, func(s *OperationStats) {
		s.Requests++
		if degraded {
			s.Degraded++
		}
	})

	if r.store != nil {
		r.store.Set(ctx, key, result)
	}
	return result, nil
}

// shape extracts and validates the payload, substituting the empty
// default on any mismatch.
func shape(operation string, spec prompt.Spec, content string) (any, bool) {
	v, ok := extract.JSON(content)
	if !ok {
		log.Printf("service: no structured payload in %s response, substituting empty result", operation)
		return prompt.Empty(operation), true
	}

	switch spec.Format {
	case prompt.FormatArray:
		if arr, ok := extract.Array(v); ok {
			return arr, false
		}
	default:
		if obj, ok := extract.Object(v, spec.Required...); ok {
			return obj, false
		}
	}
	log.Printf("service: %s response failed shape validation, substituting empty result", operation)
	return prompt.Empty(operation), true
}

// runBatch fans out one goroutine per item and aggregates results
// positionally. A failing item contributes the operation's empty default
// instead of failing the batch, and cancellation of one item's work does
// not cancel its siblings.
func (r *runner) runBatch(ctx context.Context, operation string, items []map[string]any, options map[string]any, modelName string) ([]any, error) {
	if _, ok := prompt.Get(operation); !ok {
		return nil, fmt.Errorf("unknown operation: %q", operation)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("batch data must be a non-empty list")
	}

	results := make([]any, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item map[string]any) {
			defer wg.Done()
			v, err := r.run(ctx, operation, item, options, modelName)
			if err != nil {
				log.Printf("service: batch item %d failed for %s: %v", i, operation, err)
				v = prompt.Empty(operation)
			}
			results[i] = v
		}(i, item)
	}
	wg.Wait()
	return results, nil
}

// account writes a usage record without blocking the request path.
func (r *runner) account(ctx context.Context, operation, modelName string, resp *model.Response, cacheHit bool, started time.Time) {
	if r.usage == nil {
		return
	}
	rec := &usage.Record{
		ClientID:  auth.GetClientID(ctx),
		RequestID: auth.GetRequestID(ctx),
		Operation: operation,
		Model:     modelName,
		CacheHit:  cacheHit,
		LatencyMs: time.Since(started).Milliseconds(),
	}
	if resp != nil {
		rec.Provider = resp.Provider
		rec.Model = resp.Model
		rec.PromptTokens = resp.Usage.PromptTokens
		rec.CompletionTokens = resp.Usage.CompletionTokens
		rec.TotalTokens = resp.Usage.TotalTokens
	}
	go func() {
		if err := r.usage.Log(context.Background(), rec); err != nil {
			log.Printf("service: usage log failed: %v", err)
		}
	}()
}

func (r *runner) record(operation string, update func(*OperationStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[operation]
	if !ok {
		s = &OperationStats{}
		r.stats[operation] = s
	}
	update(s)
}

// Statistics returns a copy of the per-operation counters, keyed by
// operation name in sorted order.
func (r *runner) Statistics() map[string]OperationStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.stats))
	for k := range r.stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]OperationStats, len(keys))
	for _, k := range keys {
		out[k] = *r.stats[k]
	}
	return out
}

// ClearCache drops every cached result.
func (r *runner) ClearCache(ctx context.Context) {
	if r.store != nil {
		r.store.Clear(ctx)
	}
}

// Close releases the underlying adapter.
func (r *runner) Close() error {
	return r.adapter.Close()
}
