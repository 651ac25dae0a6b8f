package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lawquery/lexgate/internal/gateway/fallback"
	"github.com/lawquery/lexgate/internal/shared/redis"
)

type Cache struct {
	redis *redis.Client
}

// New creates a new cache instance
func New(redisClient *redis.Client) *Cache {
	return &Cache{redis: redisClient}
}

// generateCacheKey hashes the question for caching. The key is model
// independent so answers stay valid across tier changes.
func (c *Cache) generateCacheKey(q fallback.Question) string {
	keyData := fmt.Sprintf("%s|%s|%s", q.Text, q.Context, q.Language)

	hash := sha256.Sum256([]byte(keyData))
	return "cache:ask:" + hex.EncodeToString(hash[:])
}

// Get retrieves a cached answer
func (c *Cache) Get(ctx context.Context, q fallback.Question) (*fallback.Answer, error) {
	key := c.generateCacheKey(q)

	val, err := c.redis.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var cached fallback.Answer
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, fmt.Errorf("failed to deserialize cached answer: %w", err)
	}

	return &cached, nil
}

// Set stores an answer in cache. Degraded answers are never cached.
func (c *Cache) Set(ctx context.Context, q fallback.Question, answer *fallback.Answer, ttl time.Duration) error {
	if answer.Degraded {
		return nil
	}

	key := c.generateCacheKey(q)

	data, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("failed to serialize answer: %w", err)
	}

	return c.redis.Set(ctx, key, string(data), ttl)
}
