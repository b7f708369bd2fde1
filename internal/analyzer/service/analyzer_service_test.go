package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/cache"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/enrich"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/metrics"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/pipeline"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/scoring"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/service"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/source"
	"github.com/umanagarjuna/tweet-analyzer/pkg/validator"
)

// mockFetcher records the arguments it was called with.
type mockFetcher struct {
	posts      []domain.Post
	err        error
	calls      int
	count      int
	maxRetries int
}

func (m *mockFetcher) Fetch(_ context.Context, _ string, count, maxRetries int) ([]domain.Post, error) {
	m.calls++
	m.count = count
	m.maxRetries = maxRetries
	if m.err != nil {
		return nil, m.err
	}
	if len(m.posts) > count {
		return m.posts[:count], nil
	}
	return m.posts, nil
}

type labelEnricher struct {
	labels []string
}

func (e labelEnricher) Enrich(_ context.Context, _ string, posts []domain.Post) []domain.EnrichedPost {
	out := make([]domain.EnrichedPost, len(posts))
	for i, p := range posts {
		label := domain.LabelLikelyReal
		if i < len(e.labels) {
			label = e.labels[i]
		}
		out[i] = domain.EnrichedPost{Post: p, FakeNews: domain.FakeNews{Label: label}, URLs: []string{}}
	}
	return out
}

func (e labelEnricher) ScoreArticles(_ context.Context, articles []domain.Article) []domain.ScoredArticle {
	out := make([]domain.ScoredArticle, len(articles))
	for i, a := range articles {
		out[i] = domain.ScoredArticle{Article: a}
	}
	return out
}

type mockPublisher struct {
	mu       sync.Mutex
	searches []*domain.SearchEvent
	analyses []*domain.AnalysisEvent
	failWith error
}

func (p *mockPublisher) PublishSearchRequested(_ context.Context, e *domain.SearchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searches = append(p.searches, e)
	return p.failWith
}

func (p *mockPublisher) PublishAnalysisCompleted(_ context.Context, e *domain.AnalysisEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.analyses = append(p.analyses, e)
	return p.failWith
}

func (p *mockPublisher) Close() error { return nil }

func makePosts(n int) []domain.Post {
	posts := make([]domain.Post, n)
	for i := range posts {
		posts[i] = domain.Post{ID: fmt.Sprintf("%d", i), Text: fmt.Sprintf("post %d", i)}
	}
	return posts
}

func intPtr(v int) *int { return &v }

func newService(f service.Fetcher, e service.Enricher, p domain.EventPublisher) *service.AnalyzerService {
	return service.NewAnalyzerService(f, e, validator.NewDefaultValidator(), p, nil, zap.NewNop(),
		service.Config{DefaultCount: 10, MaxRetries: 3})
}

func TestAnalyze_Success(t *testing.T) {
	// Arrange
	fetcher := &mockFetcher{posts: makePosts(20)}
	publisher := &mockPublisher{}
	svc := newService(fetcher, labelEnricher{labels: []string{
		domain.LabelPotentiallyFake, domain.LabelUnknown,
	}}, publisher)

	// Act
	resp, err := svc.Analyze(context.Background(), &domain.AnalyzeRequest{Keyword: "golang", ClientIP: "10.0.0.1"})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Keyword != "golang" || resp.Total != 10 || len(resp.Tweets) != 10 {
		t.Errorf("unexpected response: keyword=%s total=%d len=%d", resp.Keyword, resp.Total, len(resp.Tweets))
	}
	if fetcher.count != 10 || fetcher.maxRetries != 3 {
		t.Errorf("expected fetch(count=10, retries=3), got (%d, %d)", fetcher.count, fetcher.maxRetries)
	}

	if len(publisher.searches) != 1 || publisher.searches[0].ClientIP != "10.0.0.1" {
		t.Errorf("expected one search event with client ip, got %+v", publisher.searches)
	}
	if len(publisher.analyses) != 1 {
		t.Fatalf("expected one analysis event, got %d", len(publisher.analyses))
	}
	ev := publisher.analyses[0]
	if ev.Requested != 10 || ev.Returned != 10 || ev.PotentiallyFake != 1 || ev.Unclassified != 1 {
		t.Errorf("unexpected analysis event: %+v", ev)
	}
}

func TestAnalyze_NumTweets(t *testing.T) {
	tests := []struct {
		name      string
		numTweets *int
		wantCount int
		wantErr   bool
	}{
		{"default", nil, 10, false},
		{"explicit", intPtr(5), 5, false},
		{"capped", intPtr(500), 100, false},
		{"zero", intPtr(0), 0, true},
		{"negative", intPtr(-3), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &mockFetcher{posts: makePosts(200)}
			svc := newService(fetcher, labelEnricher{}, &mockPublisher{})

			resp, err := svc.Analyze(context.Background(),
				&domain.AnalyzeRequest{Keyword: "go", NumTweets: tt.numTweets})

			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				if fetcher.calls != 0 {
					t.Error("fetcher should not be called for invalid requests")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fetcher.count != tt.wantCount || resp.Total != tt.wantCount {
				t.Errorf("expected count %d, got fetch=%d total=%d", tt.wantCount, fetcher.count, resp.Total)
			}
		})
	}
}

func TestAnalyze_EmptyKeyword(t *testing.T) {
	fetcher := &mockFetcher{}
	publisher := &mockPublisher{}
	svc := newService(fetcher, labelEnricher{}, publisher)

	_, err := svc.Analyze(context.Background(), &domain.AnalyzeRequest{Keyword: "  "})

	if !errors.Is(err, domain.ErrValidation) || !errors.Is(err, validator.ErrEmptyKeyword) {
		t.Errorf("expected ErrValidation wrapping ErrEmptyKeyword, got %v", err)
	}
	if fetcher.calls != 0 || len(publisher.searches) != 0 {
		t.Error("nothing should happen for an empty keyword")
	}
}

func TestAnalyze_FetchFailure(t *testing.T) {
	// Arrange
	fetchErr := &domain.FetchError{Kind: domain.ErrRateLimitExhausted, Keyword: "go", Retries: 3,
		Err: &domain.RateLimitError{}}
	publisher := &mockPublisher{}
	m := metrics.NewInMemoryMetrics()
	svc := service.NewAnalyzerService(&mockFetcher{err: fetchErr}, labelEnricher{}, validator.NewDefaultValidator(),
		publisher, m, zap.NewNop(), service.Config{DefaultCount: 10, MaxRetries: 3})

	// Act
	resp, err := svc.Analyze(context.Background(), &domain.AnalyzeRequest{Keyword: "go"})

	// Assert
	if resp != nil {
		t.Errorf("expected no partial response, got %+v", resp)
	}
	if !errors.Is(err, domain.ErrRateLimitExhausted) {
		t.Errorf("expected ErrRateLimitExhausted, got %v", err)
	}
	if len(publisher.analyses) != 0 {
		t.Error("no analysis event should be published on failure")
	}
	if n := m.GetCounters()["analyze_failures{kind=rate_limit}"]; n != 1 {
		t.Errorf("expected one labelled failure, got %v", m.GetCounters())
	}
}

func TestAnalyze_PublishFailureIsNotSurfaced(t *testing.T) {
	publisher := &mockPublisher{failWith: errors.New("broker down")}
	svc := newService(&mockFetcher{posts: makePosts(3)}, labelEnricher{}, publisher)

	resp, err := svc.Analyze(context.Background(), &domain.AnalyzeRequest{Keyword: "go"})

	if err != nil {
		t.Fatalf("publish failures must not fail the request, got %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected 3 posts, got %d", resp.Total)
	}
}

// countingSource returns n posts per call and counts calls.
type countingSource struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSource) Search(_ context.Context, keyword string, count int) ([]domain.Post, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	posts := make([]domain.Post, count)
	for i := range posts {
		posts[i] = domain.Post{
			ID:   fmt.Sprintf("%d", i),
			Text: fmt.Sprintf("I love %s, it is great! https://example.com/%d", keyword, i),
		}
	}
	return posts, nil
}

func TestAnalyze_EndToEnd(t *testing.T) {
	// Arrange
	mem := cache.NewMemoryCache(5*time.Minute, 0)
	defer mem.Close()
	src := &countingSource{}
	m := metrics.NewInMemoryMetrics()
	p := pipeline.New(mem, src, zap.NewNop(), pipeline.WithMetrics(m))

	lexicon, err := scoring.NewLexiconAnalyzer()
	if err != nil {
		t.Fatalf("NewLexiconAnalyzer: %v", err)
	}
	e := enrich.NewEnricher(lexicon, scoring.NewHeuristicClassifier(lexicon), zap.NewNop())
	svc := service.NewAnalyzerService(p, e, validator.NewDefaultValidator(), &mockPublisher{}, m,
		zap.NewNop(), service.Config{DefaultCount: 10, MaxRetries: 3})

	// Act
	first, err := svc.Analyze(context.Background(), &domain.AnalyzeRequest{Keyword: "golang"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := svc.Analyze(context.Background(), &domain.AnalyzeRequest{Keyword: "golang"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// Assert
	if first.Total != 10 || second.Total != 10 {
		t.Fatalf("expected 10 posts twice, got %d and %d", first.Total, second.Total)
	}
	for i, post := range first.Tweets {
		if post.Sentiment.Compound <= 0 {
			t.Errorf("post %d: expected positive sentiment, got %+v", i, post.Sentiment)
		}
		if post.FakeNews.Label == "" {
			t.Errorf("post %d: fake news not populated", i)
		}
		if len(post.URLs) != 1 {
			t.Errorf("post %d: expected one url, got %v", i, post.URLs)
		}
	}
	if src.calls != 1 {
		t.Errorf("second request should be served from cache, got %d remote calls", src.calls)
	}
	if hits := m.GetCounters()[metrics.CacheHits]; hits != 1 {
		t.Errorf("expected 1 cache hit, got %d", hits)
	}
}

type mockNews struct {
	articles []domain.Article
	err      error
	queries  []source.NewsQuery
}

func (m *mockNews) Search(_ context.Context, q source.NewsQuery) ([]domain.Article, error) {
	m.queries = append(m.queries, q)
	return m.articles, m.err
}

func newNewsService(news service.NewsSearcher) *service.AnalyzerService {
	return service.NewAnalyzerService(&mockFetcher{}, labelEnricher{}, validator.NewDefaultValidator(),
		&mockPublisher{}, nil, zap.NewNop(), service.Config{}, service.WithNews(news))
}

func TestNews_ReturnsScoredArticles(t *testing.T) {
	news := &mockNews{articles: []domain.Article{{Title: "a"}, {Title: "b"}}}
	svc := newNewsService(news)

	resp, err := svc.News(context.Background(), "election", nil)

	if err != nil {
		t.Fatalf("News: %v", err)
	}
	if resp.Keyword != "election" || resp.Days != service.DefaultNewsDays || resp.Total != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Articles[0].Title != "a" || resp.Articles[1].Title != "b" {
		t.Errorf("order not preserved: %+v", resp.Articles)
	}
	if len(news.queries) != 1 {
		t.Fatalf("expected one search, got %d", len(news.queries))
	}
	q := news.queries[0]
	if q.Keyword != "election" || q.PageSize <= 0 {
		t.Errorf("unexpected query %+v", q)
	}
	if got := q.To.Sub(q.From); got != 7*24*time.Hour {
		t.Errorf("date window: got %v, want 7 days", got)
	}
}

func TestNews_Validation(t *testing.T) {
	tests := []struct {
		name    string
		keyword string
		days    *int
	}{
		{"empty keyword", "  ", nil},
		{"zero days", "election", intPtr(0)},
		{"too many days", "election", intPtr(service.MaxNewsDays + 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			news := &mockNews{}
			_, err := newNewsService(news).News(context.Background(), tt.keyword, tt.days)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			if len(news.queries) != 0 {
				t.Error("no search expected")
			}
		})
	}
}

func TestNews_SearchFailure(t *testing.T) {
	svc := newNewsService(&mockNews{err: errors.New("apiKeyInvalid")})

	_, err := svc.News(context.Background(), "election", intPtr(3))

	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestNews_NotConfigured(t *testing.T) {
	svc := newService(&mockFetcher{}, labelEnricher{}, &mockPublisher{})

	_, err := svc.News(context.Background(), "election", nil)

	if !errors.Is(err, domain.ErrNewsUnavailable) {
		t.Errorf("expected ErrNewsUnavailable, got %v", err)
	}
}
