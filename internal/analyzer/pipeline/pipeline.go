// Package pipeline implements the cache-first, rate-limit aware retrieval of
// posts for a keyword.
//
// A fetch first consults the cache. On a miss it queries the source; a
// rate-limit answer is waited out (reset time minus now, or 60s when the
// upstream gives no reset) and retried up to maxRetries times. Any other
// failure is final. Successful results are cached under the keyword.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/cache"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/metrics"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/source"
)

// DefaultResetWait is assumed when a rate-limit answer carries no reset time.
const DefaultResetWait = 60 * time.Second

// Clock abstracts time for the backoff wait.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Pipeline struct {
	cache   cache.Cache
	source  source.Source
	clock   Clock
	logger  *zap.Logger
	metrics metrics.Metrics
	group   singleflight.Group
}

type Option func(*Pipeline)

func WithClock(c Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

func WithMetrics(m metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func New(c cache.Cache, src source.Source, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cache:   c,
		source:  src,
		clock:   realClock{},
		logger:  logger,
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch returns at most count posts for keyword. Failures are
// *domain.FetchError values whose Kind is ErrRateLimitExhausted or
// ErrUpstream; bad arguments yield ErrValidation.
func (p *Pipeline) Fetch(ctx context.Context, keyword string, count,
	maxRetries int) ([]domain.Post, error) {

	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword is required", domain.ErrValidation)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1", domain.ErrValidation)
	}
	if maxRetries < 0 {
		return nil, fmt.Errorf("%w: max retries must not be negative", domain.ErrValidation)
	}

	start := time.Now()
	defer func() { p.metrics.RecordDuration(metrics.FetchDuration, time.Since(start)) }()

	if posts, ok := p.lookup(ctx, keyword, count, true); ok {
		return posts, nil
	}

	// Identical in-flight fetches share one remote call. The shared call
	// outlives any single caller's context.
	key := fmt.Sprintf("%s\x00%d\x00%d", keyword, count, maxRetries)
	ch := p.group.DoChan(key, func() (interface{}, error) {
		return p.fetchRemote(context.WithoutCancel(ctx), keyword, count, maxRetries)
	})

	select {
	case res := <-ch:
		if res.Shared {
			p.logger.Debug("Joined in-flight fetch", zap.String("keyword", keyword))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Post), nil
	case <-ctx.Done():
		return nil, &domain.FetchError{
			Kind: domain.ErrUpstream, Keyword: keyword, Err: ctx.Err(),
		}
	}
}

func (p *Pipeline) fetchRemote(ctx context.Context, keyword string, count,
	maxRetries int) ([]domain.Post, error) {

	attemptsLeft := maxRetries
	for {
		// Another caller may have filled the cache while we waited. The
		// miss was already counted on entry.
		if attemptsLeft < maxRetries {
			if posts, ok := p.lookup(ctx, keyword, count, false); ok {
				return posts, nil
			}
		}

		posts, err := p.source.Search(ctx, keyword, count)
		if err == nil {
			if len(posts) > count {
				posts = posts[:count]
			}
			if err := p.cache.Set(ctx, keyword, posts); err != nil {
				p.metrics.IncrementCounter(metrics.CacheErrors)
				p.logger.Warn("Failed to cache posts",
					zap.Error(err), zap.String("keyword", keyword))
			}
			return posts, nil
		}

		retries := maxRetries - attemptsLeft

		var rl *domain.RateLimitError
		if !errors.As(err, &rl) {
			p.metrics.IncrementCounter(metrics.UpstreamErrors)
			p.logger.Error("Failed to fetch posts",
				zap.Error(err), zap.String("keyword", keyword))
			return nil, &domain.FetchError{
				Kind: domain.ErrUpstream, Keyword: keyword, Retries: retries, Err: err,
			}
		}

		p.metrics.IncrementCounter(metrics.RateLimited)
		if attemptsLeft == 0 {
			p.metrics.IncrementCounter(metrics.RateLimitExhausted)
			p.logger.Error("Rate limit exceeded and retries exhausted",
				zap.String("keyword", keyword), zap.Int("retries", retries))
			return nil, &domain.FetchError{
				Kind: domain.ErrRateLimitExhausted, Keyword: keyword, Retries: retries, Err: err,
			}
		}

		wait := RetryAfter(rl.ResetAt, p.clock.Now())
		p.logger.Warn("Rate limit exceeded, backing off",
			zap.String("keyword", keyword),
			zap.Duration("retry_after", wait),
			zap.Int("attempts_left", attemptsLeft))

		if err := p.clock.Sleep(ctx, wait); err != nil {
			return nil, &domain.FetchError{
				Kind: domain.ErrUpstream, Keyword: keyword, Retries: retries, Err: err,
			}
		}
		attemptsLeft--
		p.metrics.IncrementCounter(metrics.Retries)
	}
}

// lookup reads the cache. Cache failures are logged and treated as misses.
// countMiss is false for re-checks made between retries.
func (p *Pipeline) lookup(ctx context.Context, keyword string,
	count int, countMiss bool) ([]domain.Post, bool) {

	posts, found, err := p.cache.Get(ctx, keyword)
	if err != nil {
		p.metrics.IncrementCounter(metrics.CacheErrors)
		p.logger.Warn("Cache get failed",
			zap.Error(err), zap.String("keyword", keyword))
		return nil, false
	}
	if !found {
		if countMiss {
			p.metrics.IncrementCounter(metrics.CacheMisses)
		}
		return nil, false
	}

	p.metrics.IncrementCounter(metrics.CacheHits)
	p.logger.Debug("Cache hit", zap.String("keyword", keyword))
	if len(posts) > count {
		posts = posts[:count]
	}
	return posts, true
}

// RetryAfter is max(0, reset - now); a zero reset means now + DefaultResetWait.
func RetryAfter(reset, now time.Time) time.Duration {
	if reset.IsZero() {
		return DefaultResetWait
	}
	if d := reset.Sub(now); d > 0 {
		return d
	}
	return 0
}
