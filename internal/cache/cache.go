// Package cache is the TTL-based result cache shared by every AI
// service. Caching is advisory: disabling it changes cost and latency,
// never correctness.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Store maps request fingerprints to previously computed results.
// Implementations treat storage failures as misses; the caller simply
// recomputes.
type Store interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any)
	Clear(ctx context.Context)
}

// Fingerprint canonicalizes an operation's full input into a stable
// cache key: sorted-key JSON hashed with SHA-256. The payload is taken
// verbatim, so cosmetically extra fields produce distinct keys; only key
// order is normalized.
func Fingerprint(operationType string, data, options any, modelName string) string {
	payload := map[string]any{
		"operation_type": operationType,
		"data":           data,
		"options":        options,
		"model_name":     modelName,
	}
	b, err := json.Marshal(payload) // map keys are serialized sorted
	if err != nil {
		b = []byte(fmt.Sprintf("%s|%v|%v|%s", operationType, data, options, modelName))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

// Memory is a mutex-guarded in-process store. Expired entries are
// evicted lazily on the read that finds them; there is no background
// sweeper.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().Sub(e.createdAt) > e.ttl {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(ctx context.Context, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, createdAt: m.now(), ttl: m.ttl}
}

func (m *Memory) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
}
