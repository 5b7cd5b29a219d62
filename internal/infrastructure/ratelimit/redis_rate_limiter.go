// Package ratelimit provides distributed rate limiting using Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/pdmews/internal/config"
	"github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
)

// Lua script for atomic token bucket operations
const tokenBucketLuaScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1]) or capacity
local last_refill = tonumber(bucket[2]) or now

-- rate is per second, elapsed in ms
local elapsed = math.max(0, now - last_refill)
tokens = math.min(tokens + elapsed * rate / 1000, capacity)

local allowed = 0
local retry_ms = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
else
    retry_ms = math.ceil((1 - tokens) / rate * 1000)
end

local full_ms = math.ceil((capacity - tokens) / rate * 1000)
redis.call('HSET', key, 'tokens', tostring(tokens), 'last_refill', now)
redis.call('PEXPIRE', key, full_ms + 60000)

return {allowed, math.floor(tokens), retry_ms}
`

// RedisRateLimiter implements service.RateLimiter across replicas with a Redis token bucket.
// When Redis fails it degrades to a per-process TokenBucketPool.
// Redis 不可用时降级为本地令牌桶，保证接口不因限流组件故障而不可用。
type RedisRateLimiter struct {
	client   redis.UniversalClient
	script   *redis.Script
	capacity int64
	rate     float64
	prefix   string
	fallback *TokenBucketPool
	logger   logger.Logger
}

var _ service.RateLimiter = (*RedisRateLimiter)(nil)

// NewRedisRateLimiter creates a new Redis-based rate limiter.
func NewRedisRateLimiter(client redis.UniversalClient, cfg config.RateLimitConfig, log logger.Logger) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, errors.ErrConfiguration("redis client is required")
	}
	capacity, rate := bucketShape(cfg)
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "pdmews:ratelimit"
	}

	rl := &RedisRateLimiter{
		client:   client,
		script:   redis.NewScript(tokenBucketLuaScript),
		capacity: int64(capacity),
		rate:     rate,
		prefix:   prefix,
		fallback: NewTokenBucketPool(TokenBucketConfig{Capacity: capacity, Rate: rate}),
		logger:   log.WithComponent("ratelimit"),
	}
	rl.logger.Info(context.Background(), "Redis rate limiter initialized",
		logger.Int64("capacity", rl.capacity),
		logger.Float64("rate_per_second", rate),
	)
	return rl, nil
}

// NewLocalRateLimiter creates an in-process limiter with the configured bucket shape.
func NewLocalRateLimiter(cfg config.RateLimitConfig) *TokenBucketPool {
	capacity, rate := bucketShape(cfg)
	return NewTokenBucketPool(TokenBucketConfig{Capacity: capacity, Rate: rate})
}

// bucketShape converts requests per minute plus burst into capacity and per-second rate.
func bucketShape(cfg config.RateLimitConfig) (capacity, rate float64) {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = perMinute
	}
	return float64(burst), float64(perMinute) / 60.0
}

// Allow consumes one token from key's bucket.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (service.RateDecision, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)
	res, err := rl.script.Run(ctx, rl.client, []string{redisKey}, rl.capacity, rl.rate, time.Now().UnixMilli()).Int64Slice()
	if err != nil || len(res) < 3 {
		if err == nil {
			err = fmt.Errorf("unexpected script result %v", res)
		}
		rl.logger.Warn(ctx, "Redis rate limit check failed, using local bucket",
			logger.Error(err), logger.String("key", key))
		return rl.fallback.Allow(ctx, key)
	}

	return service.RateDecision{
		Allowed:    res[0] == 1,
		Limit:      rl.capacity,
		Remaining:  res[1],
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
