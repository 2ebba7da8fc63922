package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

const answerCachePrefix = "answer:"

// ResponseCache implements domain.ResponseCache in Redis. The TTL is set at
// write time so expiry is lazy; there is no sweep.
type ResponseCache struct {
	client *Client
	ttl    time.Duration
}

// NewResponseCache creates a new response cache
func NewResponseCache(client *Client, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResponseCache{client: client, ttl: ttl}
}

func cacheKey(question string) string {
	sum := sha256.Sum256([]byte(domain.NormalizeQuestion(question)))
	return answerCachePrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached answer for a question, or "" on a miss
func (c *ResponseCache) Get(ctx context.Context, question string) (string, error) {
	answer, err := c.client.rdb.Get(ctx, cacheKey(question)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read answer cache: %w", err)
	}
	return answer, nil
}

// Set stores an answer under the normalized question key
func (c *ResponseCache) Set(ctx context.Context, question, answer string) error {
	if err := c.client.rdb.Set(ctx, cacheKey(question), answer, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write answer cache: %w", err)
	}
	return nil
}
