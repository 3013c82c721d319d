// Package usage records per-request AI consumption: which operation ran,
// which model served it, token counts and whether the result came from
// cache. The accounting feeds capacity planning and per-client cost
// reporting.
package usage

import (
	"context"
	"time"
)

type Record struct {
	ID               string    `json:"id"`
	ClientID         string    `json:"client_id"`
	RequestID        string    `json:"request_id"`
	Operation        string    `json:"operation"` // e.g. "user_tribes"
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CacheHit         bool      `json:"cache_hit"`
	LatencyMs        int64     `json:"latency_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

type Store interface {
	Log(ctx context.Context, rec *Record) error
	GetByClient(ctx context.Context, clientID string, from, to time.Time) ([]*Record, error)
	GetTotalTokensByClient(ctx context.Context, clientID string, from, to time.Time) (int64, error)
}
