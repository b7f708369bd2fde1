package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/cache"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewRedisCache(client, ttl)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCache_SetAndGet_ReturnsPosts(t *testing.T) {
	c, mr := newRedisCache(t, 5*time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "election", samplePosts()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	posts, found, err := c.Get(ctx, "election")

	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected posts to be found")
	}
	if len(posts) != 2 || posts[1].Text != "second" {
		t.Errorf("got %+v", posts)
	}
	if ttl := mr.TTL("posts:election"); ttl != 5*time.Minute {
		t.Errorf("ttl: got %v, want 5m", ttl)
	}
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := newRedisCache(t, time.Minute)

	_, found, err := c.Get(context.Background(), "nothing")

	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected miss")
	}
}

func TestRedisCache_ExpiredEntry_ReturnsNotFound(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()
	_ = c.Set(ctx, "election", samplePosts())

	mr.FastForward(time.Minute + time.Second)
	_, found, err := c.Get(ctx, "election")

	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected expired entry to not be found")
	}
}

func TestRedisCache_NonPositiveTTL_DoesNotStore(t *testing.T) {
	c, mr := newRedisCache(t, 0)

	_ = c.Set(context.Background(), "election", samplePosts())

	if mr.Exists("posts:election") {
		t.Error("an entry that is expired on write must not be stored")
	}
}

func TestRedisCache_CorruptValue_ReturnsError(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	_ = mr.Set("posts:election", "not json")

	_, found, err := c.Get(context.Background(), "election")

	if err == nil {
		t.Fatal("expected unmarshal error")
	}
	if found {
		t.Error("corrupt value should not count as a hit")
	}
}

func TestRedisCache_Invalidate_DropsMatchingKeywords(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()
	_ = c.Set(ctx, "election 2026", samplePosts())
	_ = c.Set(ctx, "election results", samplePosts())
	_ = c.Set(ctx, "weather", samplePosts())

	if err := c.Invalidate(ctx, "election"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	if mr.Exists("posts:election 2026") || mr.Exists("posts:election results") {
		t.Error("election keywords should be gone")
	}
	if !mr.Exists("posts:weather") {
		t.Error("unrelated keyword should remain")
	}
}

func TestRedisCache_Invalidate_MatchesPrefixLiterally(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		dropped []string
		kept    []string
	}{
		{"star", "a*", []string{"a*b"}, []string{"apple", "ab"}},
		{"question mark", "a?", []string{"a?"}, []string{"ab"}},
		{"brackets", "[breaking]", []string{"[breaking] news"}, []string{"b", "news"}},
		{"backslash", `a\b`, []string{`a\b`}, []string{"ab"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mr := newRedisCache(t, time.Minute)
			ctx := context.Background()
			for _, k := range append(append([]string{}, tt.dropped...), tt.kept...) {
				_ = c.Set(ctx, k, samplePosts())
			}

			if err := c.Invalidate(ctx, tt.prefix); err != nil {
				t.Fatalf("Invalidate: %v", err)
			}

			for _, k := range tt.dropped {
				if mr.Exists("posts:" + k) {
					t.Errorf("%q should be gone", k)
				}
			}
			for _, k := range tt.kept {
				if !mr.Exists("posts:" + k) {
					t.Errorf("%q should remain", k)
				}
			}
		})
	}
}
