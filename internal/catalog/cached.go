package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "catalog:programs:"

// Cached keeps programme listings in redis for ttl. Cache failures fall
// through to the source.
type Cached struct {
	source Source
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCached(source Source, client redis.Cmdable, ttl time.Duration, log logger.Logger) *Cached {
	return &Cached{source: source, redis: client, ttl: ttl, logger: log}
}

func cacheKey(institution string) string {
	if institution == "" {
		return cacheKeyPrefix + "all"
	}
	return cacheKeyPrefix + institution
}

func (c *Cached) ListPrograms(ctx context.Context, institution string) ([]models.Program, error) {
	key := cacheKey(institution)

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var programs []models.Program
		if jsonErr := json.Unmarshal(cached, &programs); jsonErr == nil {
			return programs, nil
		}
		c.logger.Warn("Discarding unreadable programme cache entry", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Programme cache read failed", map[string]interface{}{"key": key, "error": err})
	}

	programs, err := c.source.ListPrograms(ctx, institution)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(programs); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Programme cache write failed", map[string]interface{}{"key": key, "error": err})
		}
	}
	return programs, nil
}
