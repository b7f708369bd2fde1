// Package app wires configuration into a ready analyzer service. Both the
// server and the CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/cache"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/config"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/enrich"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/events"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/metrics"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/pipeline"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/scoring"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/service"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/source"
	"github.com/umanagarjuna/tweet-analyzer/pkg/validator"
)

type App struct {
	Service   *service.AnalyzerService
	Metrics   *metrics.InMemoryMetrics
	Source    *source.TwitterSource
	News      *source.NewsAPIClient // nil unless a news API key is set
	Cache     cache.Cache
	Publisher domain.EventPublisher

	closers []func() error
}

// NewLogger builds a production logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Metrics: metrics.NewInMemoryMetrics()}

	c, err := a.initCache(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Cache = c

	if cfg.Twitter.BearerToken == "" {
		logger.Warn("No Twitter bearer token configured; searches will fail")
	}
	a.Source = source.NewTwitterSource(source.Config{
		BaseURL:     cfg.Twitter.BaseURL,
		BearerToken: cfg.Twitter.BearerToken,
		Timeout:     cfg.Twitter.Timeout,
	})

	lexicon, err := scoring.NewLexiconAnalyzer()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load sentiment lexicon: %w", err)
	}

	var classifier scoring.FakeNewsClassifier
	if cfg.Scoring.HuggingFaceToken != "" {
		classifier = scoring.NewHuggingFaceClassifier(scoring.HuggingFaceConfig{
			Endpoint: cfg.Scoring.HuggingFaceEndpoint,
			Token:    cfg.Scoring.HuggingFaceToken,
			Timeout:  cfg.Scoring.Timeout,
		})
		logger.Info("Using hosted fake news classifier",
			zap.String("endpoint", cfg.Scoring.HuggingFaceEndpoint))
	} else {
		classifier = scoring.NewHeuristicClassifier(lexicon)
		logger.Info("Using heuristic fake news classifier")
	}

	enrichOpts := []enrich.Option{
		enrich.WithMetrics(a.Metrics),
		enrich.WithConcurrency(cfg.Scoring.Concurrency),
	}
	if cfg.Scoring.VirusTotalKey != "" {
		enrichOpts = append(enrichOpts, enrich.WithURLScanner(scoring.NewVirusTotalScanner(
			scoring.VirusTotalConfig{
				Endpoint: cfg.Scoring.VirusTotalEndpoint,
				APIKey:   cfg.Scoring.VirusTotalKey,
				Timeout:  cfg.Scoring.Timeout,
			})))
		logger.Info("URL scanning enabled")
	}

	var serviceOpts []service.Option
	if cfg.News.APIKey != "" {
		a.News = source.NewNewsAPIClient(source.NewsConfig{
			BaseURL: cfg.News.BaseURL,
			APIKey:  cfg.News.APIKey,
			Timeout: cfg.News.Timeout,
		})
		enrichOpts = append(enrichOpts, enrich.WithNewsVerifier(a.News))
		serviceOpts = append(serviceOpts, service.WithNews(a.News))
		logger.Info("News verification enabled")
	}

	enricher := enrich.NewEnricher(lexicon, classifier, logger, enrichOpts...)

	fetcher := pipeline.New(c, a.Source, logger, pipeline.WithMetrics(a.Metrics))

	if cfg.Kafka.Enabled {
		publisher, err := events.NewEventPublisher(cfg.Kafka.Brokers)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
		}
		a.Publisher = publisher
		a.closers = append(a.closers, publisher.Close)
	} else {
		a.Publisher = events.NoopPublisher{}
	}

	a.Service = service.NewAnalyzerService(
		fetcher,
		enricher,
		validator.NewDefaultValidator(),
		a.Publisher,
		a.Metrics,
		logger,
		service.Config{
			DefaultCount: cfg.Service.DefaultCount,
			MaxRetries:   cfg.Service.MaxRetries,
		},
		serviceOpts...,
	)

	return a, nil
}

func (a *App) initCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr(), err)
		}
		rc := cache.NewRedisCache(client, cfg.Cache.TTL)
		a.closers = append(a.closers, rc.Close)
		logger.Info("Using redis cache", zap.String("addr", cfg.Redis.Addr()))
		return rc, nil
	default:
		mc := cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.SweepInterval)
		a.closers = append(a.closers, mc.Close)
		logger.Info("Using in-memory cache", zap.Duration("ttl", cfg.Cache.TTL))
		return mc, nil
	}
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
