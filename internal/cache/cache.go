// Package cache keeps presigned archive URLs in Redis so repeated
// project reads skip the artifact store.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"ideaforge/internal/logging"
)

// urlTTL is shorter than the presign expiry so a cached URL is never
// handed out with only seconds of life left.
const urlTTL = 50 * time.Minute

// PresignCache caches presigned URLs per project. A nil cache is valid
// and degrades to misses, so callers never branch on Redis being
// configured.
type PresignCache struct {
	client *redis.Client
}

// New connects to Redis at redisURL. An empty URL disables caching.
func New(ctx context.Context, redisURL string) (*PresignCache, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}

	logging.L().Info("presign cache connected", zap.String("addr", opts.Addr))
	return &PresignCache{client: client}, nil
}

func key(projectID string) string {
	return "presign:" + projectID
}

// Get returns the cached URL for the project, or "" on a miss. Cache
// failures are logged and treated as misses.
func (c *PresignCache) Get(ctx context.Context, projectID string) string {
	if c == nil {
		return ""
	}
	url, err := c.client.Get(ctx, key(projectID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.L().Warn("presign cache read failed", zap.Error(err))
		}
		return ""
	}
	return url
}

// Put stores the URL for the project.
func (c *PresignCache) Put(ctx context.Context, projectID, url string) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, key(projectID), url, urlTTL).Err(); err != nil {
		logging.L().Warn("presign cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached URL, used when the archive changes.
func (c *PresignCache) Invalidate(ctx context.Context, projectID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, key(projectID)).Err(); err != nil {
		logging.L().Warn("presign cache invalidation failed", zap.Error(err))
	}
}

// Close releases the Redis connection.
func (c *PresignCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
