// Package enrich attaches sentiment, misinformation scores and links to
// fetched posts. Link scanning and news verification are optional.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/metrics"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/scoring"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/source"
)

const (
	defaultConcurrency = 4

	// Posts are checked against the most relevant articles only.
	verificationArticles = 5
)

// NewsSearcher finds news articles for a keyword.
type NewsSearcher interface {
	Search(ctx context.Context, query source.NewsQuery) ([]domain.Article, error)
}

type Enricher struct {
	sentiment   scoring.SentimentAnalyzer
	classifier  scoring.FakeNewsClassifier
	scanner     scoring.URLScanner
	news        NewsSearcher
	logger      *zap.Logger
	metrics     metrics.Metrics
	concurrency int
}

type Option func(*Enricher)

func WithMetrics(m metrics.Metrics) Option {
	return func(e *Enricher) { e.metrics = m }
}

// WithConcurrency bounds the number of posts scored at once.
func WithConcurrency(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithURLScanner scans every extracted link.
func WithURLScanner(s scoring.URLScanner) Option {
	return func(e *Enricher) { e.scanner = s }
}

// WithNewsVerifier checks every post against news coverage of its keyword.
func WithNewsVerifier(n NewsSearcher) Option {
	return func(e *Enricher) { e.news = n }
}

func NewEnricher(sentiment scoring.SentimentAnalyzer, classifier scoring.FakeNewsClassifier,
	logger *zap.Logger, opts ...Option) *Enricher {

	e := &Enricher{
		sentiment:   sentiment,
		classifier:  classifier,
		logger:      logger,
		metrics:     metrics.Nop{},
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich scores every post found for keyword. The output has the same
// length and order as posts. A failing collaborator degrades only the post
// it failed on.
func (e *Enricher) Enrich(ctx context.Context, keyword string,
	posts []domain.Post) []domain.EnrichedPost {

	out := make([]domain.EnrichedPost, len(posts))
	if len(posts) == 0 {
		return out
	}

	articles, newsOK := e.verificationArticles(ctx, keyword)

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, post := range posts {
		i, post := i, post
		g.Go(func() error {
			out[i] = e.enrichOne(ctx, post)
			if e.news != nil {
				v := domain.NewsVerification{Sources: []domain.NewsSource{}}
				if newsOK {
					v = scoring.VerifyWithNews(post.Text, articles)
				}
				out[i].NewsVerification = &v
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// verificationArticles fetches the articles shared by every post of one
// keyword. ok is false when no news searcher is set or the search failed.
func (e *Enricher) verificationArticles(ctx context.Context,
	keyword string) ([]domain.Article, bool) {

	if e.news == nil {
		return nil, false
	}
	articles, err := e.news.Search(ctx, source.NewsQuery{
		Keyword:  keyword,
		PageSize: verificationArticles,
	})
	if err != nil {
		e.metrics.IncrementCounter(metrics.NewsFallbacks)
		e.logger.Warn("News verification unavailable",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrClassificationUnavailable, err)),
			zap.String("keyword", keyword))
		return nil, false
	}
	return articles, true
}

func (e *Enricher) enrichOne(ctx context.Context, post domain.Post) domain.EnrichedPost {
	enriched := domain.EnrichedPost{
		Post: post,
		URLs: ExtractURLs(post.Text),
	}
	if e.scanner != nil && len(enriched.URLs) > 0 {
		enriched.ScannedURLs = e.scanURLs(ctx, post.ID, enriched.URLs)
	}

	sentiment, err := e.sentiment.Analyze(ctx, post.Text)
	if err != nil {
		e.metrics.IncrementCounter(metrics.SentimentFallbacks)
		e.logger.Warn("Sentiment analysis failed",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrClassificationUnavailable, err)),
			zap.String("post_id", post.ID))
		sentiment = domain.Sentiment{Neu: 1}
	}
	enriched.Sentiment = sentiment

	fake, err := e.classifier.Classify(ctx, post.Text)
	if err != nil {
		e.metrics.IncrementCounter(metrics.ClassifierFallbacks)
		e.logger.Warn("Fake news classification failed",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrClassificationUnavailable, err)),
			zap.String("post_id", post.ID))
		fake = domain.UnknownFakeNews()
	}
	enriched.FakeNews = fake

	return enriched
}

// scanURLs records a failed scan on the link itself.
func (e *Enricher) scanURLs(ctx context.Context, postID string, urls []string) []domain.ScannedURL {
	scanned := make([]domain.ScannedURL, 0, len(urls))
	for _, u := range urls {
		result, err := e.scanner.Scan(ctx, u)
		if err != nil {
			e.metrics.IncrementCounter(metrics.URLScanFailures)
			e.logger.Warn("URL scan failed",
				zap.Error(err), zap.String("post_id", postID), zap.String("url", u))
			result = domain.ScannedURL{URL: u, Error: err.Error()}
		}
		scanned = append(scanned, result)
	}
	return scanned
}

// ScoreArticles attaches sentiment and a misinformation probability to each
// article, keeping order. A failing collaborator leaves that score nil.
func (e *Enricher) ScoreArticles(ctx context.Context,
	articles []domain.Article) []domain.ScoredArticle {

	out := make([]domain.ScoredArticle, len(articles))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, a := range articles {
		i, a := i, a
		g.Go(func() error {
			out[i] = e.scoreArticle(ctx, a)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (e *Enricher) scoreArticle(ctx context.Context, a domain.Article) domain.ScoredArticle {
	scored := domain.ScoredArticle{Article: a}

	title, err := e.sentiment.Analyze(ctx, a.Title)
	if err != nil {
		e.metrics.IncrementCounter(metrics.SentimentFallbacks)
		title = domain.Sentiment{Neu: 1}
	}
	scored.TitleSentiment = title

	if a.Description != "" {
		if desc, err := e.sentiment.Analyze(ctx, a.Description); err == nil {
			scored.DescriptionSentiment = &desc
		} else {
			e.metrics.IncrementCounter(metrics.SentimentFallbacks)
		}
	}

	fake, err := e.classifier.Classify(ctx, strings.TrimSpace(a.Title+" "+a.Description))
	if err != nil {
		e.metrics.IncrementCounter(metrics.ClassifierFallbacks)
		e.logger.Warn("Fake news classification failed",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrClassificationUnavailable, err)),
			zap.String("article_url", a.URL))
	} else {
		scored.FakeNewsProbability = &fake.Score
	}

	return scored
}
