package directory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cached wraps a primary resolver with a Redis read-through cache. Redis failures fall back
// to the primary; misses are never cached so a newly registered name resolves at once.
type Cached struct {
	primary Resolver
	rdb     redis.Cmdable
	ttl     time.Duration
	log     *log.Logger
}

func NewCached(primary Resolver, rdb redis.Cmdable, ttl time.Duration, logger *log.Logger) *Cached {
	if logger == nil {
		logger = log.Default()
	}
	return &Cached{primary: primary, rdb: rdb, ttl: ttl, log: logger}
}

func (c *Cached) Resolve(ctx context.Context, name string) (string, error) {
	key := nameKey(name)
	id, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil && id != "":
		return id, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.log.Printf("directory cache get %s: %v", key, err)
	}

	id, err = c.primary.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	if err := c.rdb.Set(ctx, key, id, c.ttl).Err(); err != nil {
		c.log.Printf("directory cache set %s: %v", key, err)
	}
	return id, nil
}

var _ Forgetter = (*Cached)(nil)

// Forget drops a cached name, e.g. after a player renamed.
func (c *Cached) Forget(ctx context.Context, name string) error {
	return c.rdb.Del(ctx, nameKey(name)).Err()
}

func nameKey(name string) string { return fmt.Sprintf("dir:name:%s", strings.ToLower(name)) }
