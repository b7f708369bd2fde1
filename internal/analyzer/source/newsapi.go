package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

const (
	DefaultNewsBaseURL = "https://newsapi.org"
	everythingPath     = "/v2/everything"

	// NewsAPI caps a single page at 100 articles.
	maxNewsPageSize = 100
)

// NewsQuery selects articles. Zero From/To leave the date range open and a
// zero PageSize uses the API default.
type NewsQuery struct {
	Keyword  string
	From     time.Time
	To       time.Time
	PageSize int
}

// NewsAPIClient searches articles through the NewsAPI "everything" endpoint.
type NewsAPIClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

type NewsConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewNewsAPIClient(cfg NewsConfig) *NewsAPIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultNewsBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &NewsAPIClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

type everythingResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

// Search returns English articles for the query, most relevant first.
func (c *NewsAPIClient) Search(ctx context.Context, query NewsQuery) ([]domain.Article, error) {
	q := url.Values{}
	q.Set("q", query.Keyword)
	q.Set("language", "en")
	q.Set("sortBy", "relevancy")
	if !query.From.IsZero() {
		q.Set("from", query.From.UTC().Format("2006-01-02"))
	}
	if !query.To.IsZero() {
		q.Set("to", query.To.UTC().Format("2006-01-02"))
	}
	if query.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(min(query.PageSize, maxNewsPageSize)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+everythingPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build news request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return nil, &domain.RateLimitError{}
	}

	var page everythingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode news response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || page.Status != "ok" {
		return nil, fmt.Errorf("news API returned status %d: %s %s",
			resp.StatusCode, page.Code, page.Message)
	}

	articles := make([]domain.Article, 0, len(page.Articles))
	for _, a := range page.Articles {
		articles = append(articles, domain.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return articles, nil
}
