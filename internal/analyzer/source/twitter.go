// Package source talks to the remote post search API.
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
	DefaultBaseURL = "https://api.twitter.com"
	searchPath     = "/2/tweets/search/recent"

	// The recent search endpoint rejects page sizes outside [10, 100].
	minPageSize = 10
	maxPageSize = 100

	resetHeader = "x-rate-limit-reset"
)

// Source returns up to count posts matching keyword. A rate-limit answer is
// reported as *domain.RateLimitError; anything else is an upstream failure.
type Source interface {
	Search(ctx context.Context, keyword string, count int) ([]domain.Post, error)
}

// TwitterSource implements Source against the v2 recent search API.
type TwitterSource struct {
	client      *http.Client
	baseURL     string
	bearerToken string
}

type Config struct {
	BaseURL     string
	BearerToken string
	Timeout     time.Duration
}

func NewTwitterSource(cfg Config) *TwitterSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &TwitterSource{
		client:      &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		bearerToken: cfg.BearerToken,
	}
}

type searchResponse struct {
	Data []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		AuthorID  string    `json:"author_id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"data"`
	Meta struct {
		NextToken   string `json:"next_token"`
		ResultCount int    `json:"result_count"`
	} `json:"meta"`
}

// Search pages through results until count posts are collected or the API
// has no further page.
func (s *TwitterSource) Search(ctx context.Context, keyword string,
	count int) ([]domain.Post, error) {

	posts := make([]domain.Post, 0, count)
	nextToken := ""

	for len(posts) < count {
		page, err := s.searchPage(ctx, keyword, pageSize(count-len(posts)), nextToken)
		if err != nil {
			return nil, err
		}

		for _, d := range page.Data {
			posts = append(posts, domain.Post{
				ID:        d.ID,
				Text:      d.Text,
				AuthorID:  d.AuthorID,
				CreatedAt: d.CreatedAt,
			})
		}

		nextToken = page.Meta.NextToken
		if len(page.Data) == 0 || nextToken == "" {
			break
		}
	}

	if len(posts) > count {
		posts = posts[:count]
	}
	return posts, nil
}

// Check performs the smallest possible search to verify credentials.
func (s *TwitterSource) Check(ctx context.Context) (int, error) {
	page, err := s.searchPage(ctx, "test", minPageSize, "")
	if err != nil {
		return 0, err
	}
	return len(page.Data), nil
}

func (s *TwitterSource) searchPage(ctx context.Context, keyword string,
	size int, nextToken string) (*searchResponse, error) {

	q := url.Values{}
	q.Set("query", keyword)
	q.Set("max_results", strconv.Itoa(size))
	q.Set("tweet.fields", "created_at,author_id,text")
	if nextToken != "" {
		q.Set("next_token", nextToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.bearerToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return nil, &domain.RateLimitError{ResetAt: parseReset(resp.Header.Get(resetHeader))}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search API returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &page, nil
}

func pageSize(remaining int) int {
	switch {
	case remaining < minPageSize:
		return minPageSize
	case remaining > maxPageSize:
		return maxPageSize
	default:
		return remaining
	}
}

// parseReset reads an epoch-seconds header; zero means unknown.
func parseReset(v string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
