package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/metrics"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/source"
	"github.com/umanagarjuna/tweet-analyzer/pkg/validator"
)

const (
	DefaultCount      = 10
	MaxCount          = 100
	DefaultMaxRetries = 3

	DefaultNewsDays = 7
	MaxNewsDays     = 30
	newsPageSize    = 20
)

// Fetcher retrieves posts for a keyword, consulting the cache first.
type Fetcher interface {
	Fetch(ctx context.Context, keyword string, count, maxRetries int) ([]domain.Post, error)
}

// Enricher attaches scores to fetched posts and news articles.
type Enricher interface {
	Enrich(ctx context.Context, keyword string, posts []domain.Post) []domain.EnrichedPost
	ScoreArticles(ctx context.Context, articles []domain.Article) []domain.ScoredArticle
}

// NewsSearcher finds news articles for a keyword.
type NewsSearcher interface {
	Search(ctx context.Context, query source.NewsQuery) ([]domain.Article, error)
}

type AnalyzerService struct {
	fetcher      Fetcher
	enricher     Enricher
	validator    validator.KeywordValidator
	publisher    domain.EventPublisher
	news         NewsSearcher
	metrics      metrics.Metrics
	logger       *zap.Logger
	defaultCount int
	maxRetries   int
	now          func() time.Time
}

type Config struct {
	DefaultCount int
	MaxRetries   int
}

type Option func(*AnalyzerService)

// WithNews enables News lookups.
func WithNews(n NewsSearcher) Option {
	return func(s *AnalyzerService) { s.news = n }
}

func NewAnalyzerService(
	fetcher Fetcher,
	enricher Enricher,
	validator validator.KeywordValidator,
	publisher domain.EventPublisher,
	m metrics.Metrics,
	logger *zap.Logger,
	config Config,
	opts ...Option,
) *AnalyzerService {
	count := config.DefaultCount
	if count <= 0 {
		count = DefaultCount
	}
	if count > MaxCount {
		count = MaxCount
	}
	retries := config.MaxRetries
	if retries < 0 {
		retries = DefaultMaxRetries
	}
	if m == nil {
		m = metrics.Nop{}
	}
	s := &AnalyzerService{
		fetcher:      fetcher,
		enricher:     enricher,
		validator:    validator,
		publisher:    publisher,
		metrics:      m,
		logger:       logger,
		defaultCount: count,
		maxRetries:   retries,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze fetches up to the requested number of posts and enriches them.
// On a fetch failure no partial list is returned.
func (s *AnalyzerService) Analyze(ctx context.Context,
	req *domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {

	start := time.Now()
	defer func() { s.metrics.RecordDuration(metrics.AnalyzeDuration, time.Since(start)) }()
	s.metrics.IncrementCounter(metrics.AnalyzeRequests)

	// Validate request
	if err := s.validator.Validate(req.Keyword); err != nil {
		s.countFailure("validation")
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	count, err := s.resolveCount(req.NumTweets)
	if err != nil {
		s.countFailure("validation")
		return nil, err
	}

	if err := s.publisher.PublishSearchRequested(ctx, &domain.SearchEvent{
		Keyword:   req.Keyword,
		ClientIP:  req.ClientIP,
		Timestamp: s.now(),
	}); err != nil {
		s.logger.Error("Failed to publish search requested event",
			zap.Error(err), zap.String("keyword", req.Keyword))
	}

	posts, err := s.fetcher.Fetch(ctx, req.Keyword, count, s.maxRetries)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimitExhausted) {
			s.countFailure("rate_limit")
		} else {
			s.countFailure("upstream")
		}
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			s.logger.Error("Failed to analyze keyword",
				zap.Error(err),
				zap.String("keyword", req.Keyword),
				zap.Int("retries", fe.Retries))
		}
		return nil, err
	}

	enriched := s.enricher.Enrich(ctx, req.Keyword, posts)
	s.metrics.RecordGauge(metrics.PostsReturned, float64(len(enriched)))

	event := &domain.AnalysisEvent{
		Keyword:   req.Keyword,
		Requested: count,
		Returned:  len(enriched),
		Timestamp: s.now(),
	}
	for _, p := range enriched {
		switch p.FakeNews.Label {
		case domain.LabelPotentiallyFake:
			event.PotentiallyFake++
		case domain.LabelUnknown:
			event.Unclassified++
		}
	}
	if err := s.publisher.PublishAnalysisCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish analysis completed event",
			zap.Error(err), zap.String("keyword", req.Keyword))
	}

	s.logger.Info("Keyword analyzed",
		zap.String("keyword", req.Keyword),
		zap.Int("requested", count),
		zap.Int("returned", len(enriched)),
		zap.Int("potentially_fake", event.PotentiallyFake))

	return &domain.AnalyzeResponse{
		Keyword: req.Keyword,
		Tweets:  enriched,
		Total:   len(enriched),
	}, nil
}

// News returns scored articles about keyword from the last days days. A nil
// days means DefaultNewsDays.
func (s *AnalyzerService) News(ctx context.Context, keyword string,
	days *int) (*domain.NewsResponse, error) {

	if s.news == nil {
		return nil, domain.ErrNewsUnavailable
	}
	if err := s.validator.Validate(keyword); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	window := DefaultNewsDays
	if days != nil {
		if *days < 1 || *days > MaxNewsDays {
			return nil, fmt.Errorf("%w: days must be between 1 and %d", domain.ErrValidation, MaxNewsDays)
		}
		window = *days
	}

	to := s.now().UTC()
	articles, err := s.news.Search(ctx, source.NewsQuery{
		Keyword:  keyword,
		From:     to.AddDate(0, 0, -window),
		To:       to,
		PageSize: newsPageSize,
	})
	if err != nil {
		s.logger.Error("Failed to search news",
			zap.Error(err), zap.String("keyword", keyword))
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}

	scored := s.enricher.ScoreArticles(ctx, articles)
	return &domain.NewsResponse{
		Keyword:  keyword,
		Days:     window,
		Total:    len(scored),
		Articles: scored,
	}, nil
}

func (s *AnalyzerService) countFailure(kind string) {
	s.metrics.IncrementCounterWithLabels(metrics.AnalyzeFailures, map[string]string{"kind": kind})
}

func (s *AnalyzerService) resolveCount(n *int) (int, error) {
	if n == nil {
		return s.defaultCount, nil
	}
	if *n < 1 {
		return 0, fmt.Errorf("%w: num_tweets must be at least 1", domain.ErrValidation)
	}
	if *n > MaxCount {
		return MaxCount, nil
	}
	return *n, nil
}
