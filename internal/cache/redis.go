package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores results in a shared redis instance so cache hits survive
// restarts and are shared across replicas. Expiry is delegated to redis
// key TTLs. Any redis failure degrades to a miss.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, prefix: "ai:result:"}
}

func (r *Redis) Get(ctx context.Context, key string) (any, bool) {
	b, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache: redis get error: %v", err)
		}
		return nil, false
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		log.Printf("cache: corrupt redis entry for %s: %v", key, err)
		return nil, false
	}
	return v, true
}

func (r *Redis) Set(ctx context.Context, key string, value any) {
	b, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: marshal error: %v", err)
		return
	}
	if err := r.rdb.Set(ctx, r.prefix+key, b, r.ttl).Err(); err != nil {
		log.Printf("cache: redis set error: %v", err)
	}
}

func (r *Redis) Clear(ctx context.Context) {
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("cache: redis del error: %v", err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache: redis scan error: %v", err)
	}
}
