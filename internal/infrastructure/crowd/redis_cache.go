package crowd

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/pkg/constants"
	"github.com/turtacn/pdmews/pkg/logger"
)

// RedisCache keeps report counts in a Redis hash so every replica shares them.
type RedisCache struct {
	client redis.UniversalClient
	key    string
	log    logger.Logger
}

var _ service.CrowdCorrelator = (*RedisCache)(nil)

// NewRedisCache creates a crowd cache backed by the pdmews:crowd hash.
func NewRedisCache(client redis.UniversalClient, log logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		key:    constants.CrowdRedisKey,
		log:    log.WithComponent("crowd_cache"),
	}
}

// ReportHighRisk atomically increments the app's field.
func (c *RedisCache) ReportHighRisk(ctx context.Context, appName string) error {
	if err := c.client.HIncrBy(ctx, c.key, appName, 1).Err(); err != nil {
		c.log.Error(ctx, "Failed to report high risk app", err, logger.String("app_name", appName))
		return err
	}
	return nil
}

// CrowdMultiplier maps the app's report count to its multiplier; lookup errors degrade to neutral.
func (c *RedisCache) CrowdMultiplier(ctx context.Context, appName string) float64 {
	n, err := c.ReportCount(ctx, appName)
	if err != nil {
		c.log.Warn(ctx, "Crowd lookup failed, using neutral multiplier",
			logger.String("app_name", appName), logger.Error(err))
		return constants.CrowdNeutralMultiplier
	}
	return service.CrowdMultiplierFor(n)
}

// ReportCount returns the app's report count; a missing field counts as zero.
func (c *RedisCache) ReportCount(ctx context.Context, appName string) (int, error) {
	n, err := c.client.HGet(ctx, c.key, appName).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}
