package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a read-through layer over the mirror client. Upstream mirrors are
// slow and rate-limited; identical origin/destination pairs repeat often for
// the same professional and client addresses.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewCache(redisURL string, log *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Cache{rdb: redis.NewClient(opts), ttl: 6 * time.Hour, log: log}, nil
}

func cacheKey(start, end Coordinate) string {
	return fmt.Sprintf("route:%.5f,%.5f:%.5f,%.5f", start.Lat, start.Lng, end.Lat, end.Lng)
}

func (c *Cache) Get(ctx context.Context, start, end Coordinate) *Route {
	if c == nil {
		return nil
	}
	b, err := c.rdb.Get(ctx, cacheKey(start, end)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("route cache read", zap.Error(err))
		}
		return nil
	}
	var r Route
	if err := json.Unmarshal(b, &r); err != nil {
		return nil
	}
	return &r
}

func (c *Cache) Put(ctx context.Context, start, end Coordinate, route *Route) {
	if c == nil || route == nil {
		return
	}
	b, err := json.Marshal(route)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(start, end), b, c.ttl).Err(); err != nil {
		c.log.Warn("route cache write", zap.Error(err))
	}
}
