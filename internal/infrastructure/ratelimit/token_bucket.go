// Package ratelimit provides rate limiting implementations.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/turtacn/pdmews/internal/domain/service"
)

// TokenBucket implements the token bucket algorithm for rate limiting.
// It provides thread-safe rate limiting with automatic token refill.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64   // Maximum number of tokens
	tokens     float64   // Current number of tokens
	rate       float64   // Tokens added per second
	lastRefill time.Time // Last time tokens were refilled
	now        func() time.Time
}

// TokenBucketConfig holds configuration for creating a token bucket.
type TokenBucketConfig struct {
	// Capacity is the maximum number of tokens the bucket can hold
	Capacity float64
	// Rate is the number of tokens added per second
	Rate float64
}

// NewTokenBucket creates a new, full token bucket with the specified capacity and rate.
func NewTokenBucket(capacity, rate float64) *TokenBucket {
	return newTokenBucket(capacity, rate, time.Now)
}

func newTokenBucket(capacity, rate float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		rate:       rate,
		lastRefill: now(),
		now:        now,
	}
}

// Take attempts to consume one token and reports the resulting state.
func (tb *TokenBucket) Take() service.RateDecision {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	d := service.RateDecision{Limit: int64(tb.capacity)}
	if tb.tokens >= 1 {
		tb.tokens--
		d.Allowed = true
	} else if tb.rate > 0 {
		d.RetryAfter = time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
	}
	d.Remaining = int64(math.Floor(tb.tokens))
	return d
}

// refill adds tokens to the bucket based on elapsed time since last refill.
// Must be called with lock held.
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = math.Min(tb.capacity, tb.tokens+elapsed*tb.rate)
	tb.lastRefill = now
}

// TokenBucketPool manages multiple token buckets with idle cleanup.
// It implements service.RateLimiter entirely in process memory.
type TokenBucketPool struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucketEntry
	config  TokenBucketConfig
	now     func() time.Time
}

var _ service.RateLimiter = (*TokenBucketPool)(nil)

// tokenBucketEntry wraps a token bucket with metadata.
type tokenBucketEntry struct {
	bucket   *TokenBucket
	lastUsed time.Time
}

// NewTokenBucketPool creates a new token bucket pool.
func NewTokenBucketPool(config TokenBucketConfig) *TokenBucketPool {
	return &TokenBucketPool{
		buckets: make(map[string]*tokenBucketEntry),
		config:  config,
		now:     time.Now,
	}
}

// Allow consumes one token from key's bucket.
func (p *TokenBucketPool) Allow(_ context.Context, key string) (service.RateDecision, error) {
	return p.getOrCreate(key).Take(), nil
}

func (p *TokenBucketPool) getOrCreate(key string) *TokenBucket {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if entry, exists := p.buckets[key]; exists {
		entry.lastUsed = now
		return entry.bucket
	}
	bucket := newTokenBucket(p.config.Capacity, p.config.Rate, p.now)
	p.buckets[key] = &tokenBucketEntry{bucket: bucket, lastUsed: now}
	return bucket
}

// Remove removes a bucket from the pool.
func (p *TokenBucketPool) Remove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.buckets, key)
}

// Cleanup removes buckets that haven't been used for maxIdle and returns how many were removed.
func (p *TokenBucketPool) Cleanup(maxIdle time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	removed := 0
	for key, entry := range p.buckets {
		if now.Sub(entry.lastUsed) > maxIdle {
			delete(p.buckets, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of buckets in the pool.
func (p *TokenBucketPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets)
}
