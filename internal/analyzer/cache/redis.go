package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

const postsPrefix = "posts:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, keyword string) (
	[]domain.Post, bool, error) {

	val, err := c.client.Get(ctx, postsPrefix+keyword).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}

	var posts []domain.Post
	if err := json.Unmarshal(val, &posts); err != nil {
		return nil, false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	return posts, true, nil
}

func (c *RedisCache) Set(ctx context.Context, keyword string,
	posts []domain.Post) error {

	// Redis treats a zero expiration as "keep forever"
	if c.ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	err = c.client.Set(ctx, postsPrefix+keyword, data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}

	return nil
}

// Invalidate drops every cached keyword starting with prefix. The prefix is
// matched literally.
func (c *RedisCache) Invalidate(ctx context.Context, prefix string) error {
	pattern := escapeGlob(postsPrefix+prefix) + "*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan error: %w", err)
	}

	if len(keys) > 0 {
		err := c.client.Del(ctx, keys...).Err()
		if err != nil {
			return fmt.Errorf("cache delete multiple error: %w", err)
		}
	}

	return nil
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// escapeGlob quotes the metacharacters of a Redis MATCH pattern.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
