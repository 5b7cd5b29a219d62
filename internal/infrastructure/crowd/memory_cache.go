// Package crowd implements the cross-user crowd correlation cache.
// 跨用户众包关联缓存：统计每个应用被判定为高风险的次数。
package crowd

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/turtacn/pdmews/internal/domain/service"
)

const shardCount = 32

type shard struct {
	mu     sync.Mutex
	counts map[string]int
}

// MemoryCache keeps report counts in process memory, sharded by app name.
type MemoryCache struct {
	shards [shardCount]*shard
}

var _ service.CrowdCorrelator = (*MemoryCache)(nil)

// NewMemoryCache creates an empty in-process crowd cache.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{}
	for i := range c.shards {
		c.shards[i] = &shard{counts: make(map[string]int)}
	}
	return c
}

func (c *MemoryCache) shardFor(appName string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(appName))
	return c.shards[h.Sum32()%shardCount]
}

// ReportHighRisk increments the app's report count.
func (c *MemoryCache) ReportHighRisk(_ context.Context, appName string) error {
	s := c.shardFor(appName)
	s.mu.Lock()
	s.counts[appName]++
	s.mu.Unlock()
	return nil
}

// CrowdMultiplier maps the app's report count to its multiplier.
func (c *MemoryCache) CrowdMultiplier(ctx context.Context, appName string) float64 {
	n, _ := c.ReportCount(ctx, appName)
	return service.CrowdMultiplierFor(n)
}

// ReportCount returns the app's report count.
func (c *MemoryCache) ReportCount(_ context.Context, appName string) (int, error) {
	s := c.shardFor(appName)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[appName], nil
}
