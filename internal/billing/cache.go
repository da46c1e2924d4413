package billing

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportCache keeps rendered GST reports in redis so repeated report pulls
// inside the TTL skip the aggregation queries.
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewReportCache(rdb *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached payload, if any. Cache failures behave like misses.
func (c *ReportCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores the payload for the cache TTL. Failures are ignored; the next
// call recomputes.
func (c *ReportCache) Set(ctx context.Context, key string, data []byte) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Set(ctx, key, data, c.ttl)
}
