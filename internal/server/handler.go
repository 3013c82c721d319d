// Package server exposes the AI engine over HTTP. Handlers decode the
// request envelope, enforce the per-client token budget, dispatch to the
// domain facades and translate typed adapter errors into status codes.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/tribeapp/ai-engine/config"
	"github.com/tribeapp/ai-engine/internal/auth"
	"github.com/tribeapp/ai-engine/internal/model"
	"github.com/tribeapp/ai-engine/internal/service"
	"github.com/tribeapp/ai-engine/internal/usage"
	"github.com/tribeapp/ai-engine/pkg/ratelimit"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// estimatedTokensPerCall budgets the rate limiter when a request does not
// state its own cost. One completion plus prompt rarely exceeds this.
const estimatedTokensPerCall = 1000

type Handler struct {
	matching       *service.Matching
	personality    *service.Personality
	engagement     *service.Engagement
	recommendation *service.Recommendation
	usage          usage.Store
	limiter        *ratelimit.Limiter
	tracer         trace.Tracer
}

func NewHandler(
	matching *service.Matching,
	personality *service.Personality,
	engagement *service.Engagement,
	recommendation *service.Recommendation,
	usageStore usage.Store,
	limiter *ratelimit.Limiter,
	tracer trace.Tracer,
) *Handler {
	return &Handler{
		matching:       matching,
		personality:    personality,
		engagement:     engagement,
		recommendation: recommendation,
		usage:          usageStore,
		limiter:        limiter,
		tracer:         tracer,
	}
}

type matchingRequest struct {
	MatchingType string         `json:"matching_type"`
	Data         map[string]any `json:"data"`
	Options      map[string]any `json:"options"`
	ModelName    string         `json:"model_name"`
}

type matchingBatchRequest struct {
	MatchingType string           `json:"matching_type"`
	BatchData    []map[string]any `json:"batch_data"`
	Options      map[string]any   `json:"options"`
	ModelName    string           `json:"model_name"`
}

type personalityRequest struct {
	AnalysisType   string         `json:"analysis_type"`
	AssessmentData map[string]any `json:"assessment_data"`
	Options        map[string]any `json:"options"`
	ModelName      string         `json:"model_name"`
}

type personalityBatchRequest struct {
	AnalysisType string           `json:"analysis_type"`
	BatchData    []map[string]any `json:"batch_data"`
	Options      map[string]any   `json:"options"`
	ModelName    string           `json:"model_name"`
}

type engagementRequest struct {
	EngagementType string         `json:"engagement_type"`
	Context        map[string]any `json:"context"`
	Options        map[string]any `json:"options"`
	ModelName      string         `json:"model_name"`
}

type engagementBatchRequest struct {
	EngagementType string           `json:"engagement_type"`
	BatchData      []map[string]any `json:"batch_data"`
	Options        map[string]any   `json:"options"`
	ModelName      string           `json:"model_name"`
}

type recommendationRequest struct {
	RecommendationType string         `json:"recommendation_type"`
	UserData           map[string]any `json:"user_data"`
	Context            map[string]any `json:"context"`
	Options            map[string]any `json:"options"`
	ModelName          string         `json:"model_name"`
}

type recommendationBatchRequest struct {
	RecommendationType string           `json:"recommendation_type"`
	BatchData          []map[string]any `json:"batch_data"`
	Options            map[string]any   `json:"options"`
	ModelName          string           `json:"model_name"`
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "ai-engine"})
}

// HandleModels lists the configured models with their context windows and
// capabilities.
func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	models := make(map[string]any, len(config.Models))
	for name, mc := range config.Models {
		models[name] = map[string]any{
			"context_window": mc.ContextWindow,
			"max_tokens":     mc.MaxTokens,
			"capabilities":   mc.Capabilities,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (h *Handler) HandleMatching(w http.ResponseWriter, r *http.Request) {
	var req matchingRequest
	if !h.prepare(w, r, "matching", &req, func() int { return estimatedTokensPerCall }) {
		return
	}
	result, err := h.matching.PerformMatching(r.Context(), req.MatchingType, req.Data, req.Options, req.ModelName)
	h.respond(w, result, err)
}

func (h *Handler) HandleMatchingBatch(w http.ResponseWriter, r *http.Request) {
	var req matchingBatchRequest
	if !h.prepare(w, r, "matching.batch", &req, func() int { return estimatedTokensPerCall * max(len(req.BatchData), 1) }) {
		return
	}
	results, err := h.matching.BatchPerformMatching(r.Context(), req.MatchingType, req.BatchData, req.Options, req.ModelName)
	h.respondBatch(w, results, err)
}

func (h *Handler) HandlePersonality(w http.ResponseWriter, r *http.Request) {
	var req personalityRequest
	if !h.prepare(w, r, "personality", &req, func() int { return estimatedTokensPerCall }) {
		return
	}
	result, err := h.personality.PerformAnalysis(r.Context(), req.AnalysisType, req.AssessmentData, req.Options, req.ModelName)
	h.respond(w, result, err)
}

func (h *Handler) HandlePersonalityBatch(w http.ResponseWriter, r *http.Request) {
	var req personalityBatchRequest
	if !h.prepare(w, r, "personality.batch", &req, func() int { return estimatedTokensPerCall * max(len(req.BatchData), 1) }) {
		return
	}
	results, err := h.personality.BatchPerformAnalysis(r.Context(), req.AnalysisType, req.BatchData, req.Options, req.ModelName)
	h.respondBatch(w, results, err)
}

func (h *Handler) HandleEngagement(w http.ResponseWriter, r *http.Request) {
	var req engagementRequest
	if !h.prepare(w, r, "engagement", &req, func() int { return estimatedTokensPerCall }) {
		return
	}
	result, err := h.engagement.GenerateEngagementContent(r.Context(), req.EngagementType, req.Context, req.Options, req.ModelName)
	h.respond(w, result, err)
}

func (h *Handler) HandleEngagementBatch(w http.ResponseWriter, r *http.Request) {
	var req engagementBatchRequest
	if !h.prepare(w, r, "engagement.batch", &req, func() int { return estimatedTokensPerCall * max(len(req.BatchData), 1) }) {
		return
	}
	results, err := h.engagement.BatchGenerateEngagementContent(r.Context(), req.EngagementType, req.BatchData, req.Options, req.ModelName)
	h.respondBatch(w, results, err)
}

func (h *Handler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if !h.prepare(w, r, "recommendations", &req, func() int { return estimatedTokensPerCall }) {
		return
	}
	result, err := h.recommendation.GenerateRecommendations(r.Context(), req.RecommendationType, req.UserData, req.Context, req.Options, req.ModelName)
	h.respond(w, result, err)
}

func (h *Handler) HandleRecommendationsBatch(w http.ResponseWriter, r *http.Request) {
	var req recommendationBatchRequest
	if !h.prepare(w, r, "recommendations.batch", &req, func() int { return estimatedTokensPerCall * max(len(req.BatchData), 1) }) {
		return
	}
	results, err := h.recommendation.BatchGenerateRecommendations(r.Context(), req.RecommendationType, req.BatchData, req.Options, req.ModelName)
	h.respondBatch(w, results, err)
}

// HandleUsage reports a client's logged model usage over a time range,
// defaulting to the last 30 days.
func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := auth.GetClientID(ctx)
	if clientID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'from' date format (use RFC3339)"})
			return
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'to' date format (use RFC3339)"})
			return
		}
		to = t
	}

	records, err := h.usage.GetByClient(ctx, clientID, from, to)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	totalTokens, err := h.usage.GetTotalTokensByClient(ctx, clientID, from, to)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"client_id":      clientID,
		"total_requests": len(records),
		"total_tokens":   totalTokens,
		"records":        records,
		"from":           from,
		"to":             to,
	})
}

// HandleStats exposes the in-process per-operation counters of every
// facade.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"matching":       h.matching.Statistics(),
		"personality":    h.personality.Statistics(),
		"engagement":     h.engagement.Statistics(),
		"recommendation": h.recommendation.Statistics(),
	})
}

// prepare authenticates, decodes the body into dst, records a span and
// charges the rate limiter. estimate runs after the body is decoded so
// batch requests can charge per item. It writes the error response
// itself and returns false when the request must not proceed.
func (h *Handler) prepare(w http.ResponseWriter, r *http.Request, operation string, dst any, estimate func() int) bool {
	ctx := r.Context()
	clientID := auth.GetClientID(ctx)
	if clientID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}

	_, span := h.tracer.Start(ctx, "ai."+operation)
	defer span.End()
	span.SetAttributes(
		attribute.String("client_id", clientID),
		attribute.String("request_id", auth.GetRequestID(ctx)),
		attribute.String("operation", operation),
	)

	allowed, err := h.limiter.Allow(ctx, clientID, estimate())
	if err != nil || !allowed {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":       "rate limit exceeded",
			"retry_after": "60s",
		})
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, result any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (h *Handler) respondBatch(w http.ResponseWriter, results []any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

// writeError maps typed adapter errors onto status codes. Anything that
// is not a *model.Error is an input validation failure from the facades.
func writeError(w http.ResponseWriter, err error) {
	var me *model.Error
	if !errors.As(err, &me) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch me.Kind {
	case model.KindTimeout:
		status = http.StatusGatewayTimeout
	case model.KindAuthentication:
		status = http.StatusUnauthorized
	case model.KindRateLimit:
		status = http.StatusTooManyRequests
		if me.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(me.RetryAfter))
		}
	case model.KindContentFilter:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": me.Error(), "kind": me.Kind.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
