package cache

import (
	"context"
	"sync"
	"time"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

// MemoryCache is an in-memory cache with TTL support.
type MemoryCache struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// entry holds cached posts with expiration metadata.
type entry struct {
	posts     []domain.Post
	expiresAt time.Time
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

// NewMemoryCache creates a cache whose entries live for ttl and are swept
// every sweepInterval. A non-positive sweepInterval disables the sweeper;
// expired entries are then only dropped on lookup.
func NewMemoryCache(ttl, sweepInterval time.Duration, opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		ttl:  ttl,
		now:  time.Now,
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

// Get returns the posts for keyword if present and not expired.
func (c *MemoryCache) Get(_ context.Context, keyword string) ([]domain.Post, bool, error) {
	value, ok := c.entries.Load(keyword)
	if !ok {
		return nil, false, nil
	}

	e := value.(*entry)
	if !c.now().Before(e.expiresAt) {
		c.entries.CompareAndDelete(keyword, e)
		return nil, false, nil
	}

	return e.posts, true, nil
}

// Set stores posts for keyword with the configured TTL.
func (c *MemoryCache) Set(_ context.Context, keyword string, posts []domain.Post) error {
	if c.ttl <= 0 {
		return nil
	}

	now := c.now()
	stored := make([]domain.Post, len(posts))
	copy(stored, posts)

	c.entries.Store(keyword, &entry{
		posts:     stored,
		expiresAt: now.Add(c.ttl),
	})
	return nil
}

// Len reports the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *MemoryCache) Sweep() int {
	now := c.now()
	removed := 0
	c.entries.Range(func(key, value any) bool {
		e := value.(*entry)
		if !now.Before(e.expiresAt) && c.entries.CompareAndDelete(key, e) {
			removed++
		}
		return true
	})
	return removed
}

// Close stops the background sweeper.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}
