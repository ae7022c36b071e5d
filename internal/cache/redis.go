package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// RedisCache is an optional distributed cache backend, selected when
// KREUZBERG_CACHE_BACKEND=redis. It stores whole results as JSON
// values with a TTL derived from maxAgeDays, trading the directory
// cache's own eviction loop for Redis' native expiry.
type RedisCache struct {
	client     *redis.Client
	ttl        time.Duration
}

// NewRedisCache dials addr (e.g. "nexus-redis:6379") and returns a
// cache backend backed by it.
func NewRedisCache(addr string, maxAgeDays int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    time.Duration(maxAgeDays) * 24 * time.Hour,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*result.ExtractionResult, error) {
	data, err := r.client.Get(ctx, "kreuzberg:cache:"+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, kerrors.Cache("redis get failed: " + err.Error())
	}
	var res result.ExtractionResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, kerrors.Cache("failed to decode redis cache entry: " + err.Error())
	}
	return &res, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, res *result.ExtractionResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return kerrors.Serialization("failed to encode result for redis cache: " + err.Error())
	}
	if err := r.client.Set(ctx, "kreuzberg:cache:"+key, data, r.ttl).Err(); err != nil {
		return kerrors.Cache("redis set failed: " + err.Error())
	}
	return nil
}

func (r *RedisCache) Clear(ctx context.Context) (*ClearResult, error) {
	iter := r.client.Scan(ctx, 0, "kreuzberg:cache:*", 0).Iterator()
	res := &ClearResult{}
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return nil, kerrors.Cache("redis del failed: " + err.Error())
		}
		res.RemovedFiles++
	}
	if err := iter.Err(); err != nil {
		return nil, kerrors.Cache("redis scan failed: " + err.Error())
	}
	return res, nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
