package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// URLCache memoizes presigned GET URLs. Entries expire well before the
// underlying presign TTL so a cached URL is never handed out stale.
type URLCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewURLCache(client *redis.Client, presignTTL time.Duration) *URLCache {
	ttl := presignTTL / 2
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return &URLCache{client: client, ttl: ttl}
}

func (c *URLCache) Get(ctx context.Context, objectKey string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	url, err := c.client.Get(ctx, "presign:"+objectKey).Result()
	if err != nil {
		return "", false
	}
	return url, true
}

func (c *URLCache) Put(ctx context.Context, objectKey, url string) {
	if c == nil || c.client == nil {
		return
	}
	// Best effort; a miss just re-signs.
	c.client.Set(ctx, "presign:"+objectKey, url, c.ttl)
}

func (c *URLCache) Invalidate(ctx context.Context, objectKeys ...string) {
	if c == nil || c.client == nil || len(objectKeys) == 0 {
		return
	}
	keys := make([]string, 0, len(objectKeys))
	for _, k := range objectKeys {
		keys = append(keys, "presign:"+k)
	}
	c.client.Del(ctx, keys...)
}
