package domain

import (
	"time"
)

// Post is a single item returned by the search API. It is never mutated
// after the fetch that produced it.
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Sentiment is the output of a sentiment analyzer
type Sentiment struct {
	Compound   float64  `json:"compound_score"`
	Confidence float64  `json:"confidence"`
	Pos        float64  `json:"pos"`
	Neu        float64  `json:"neu"`
	Neg        float64  `json:"neg"`
	Methods    []string `json:"analysis_methods,omitempty"`
}

// Misinformation labels
const (
	LabelUnknown         = "UNKNOWN"
	LabelPotentiallyFake = "POTENTIALLY_FAKE"
	LabelLikelyReal      = "LIKELY_REAL"
)

// FakeNews is the output of a misinformation classifier
type FakeNews struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// UnknownFakeNews is substituted when the classifier is unavailable.
func UnknownFakeNews() FakeNews {
	return FakeNews{Label: LabelUnknown, Score: 0}
}

// ScannedURL is the outcome of submitting one link to the URL scanner.
// Error is set instead of AnalysisID when the scan failed.
type ScannedURL struct {
	URL        string `json:"url"`
	AnalysisID string `json:"analysis_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Article is a news article returned by the news search API.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsSource is an article that shares enough words with a post.
type NewsSource struct {
	Title           string  `json:"title"`
	URL             string  `json:"url"`
	Source          string  `json:"source"`
	SimilarityScore float64 `json:"similarity_score"`
}

// NewsVerification reports how well a post is backed by news coverage.
type NewsVerification struct {
	Verified   bool         `json:"verified"`
	Confidence float64      `json:"confidence"`
	Sources    []NewsSource `json:"sources"`
}

// EnrichedPost represents a post with its scores attached. ScannedURLs and
// NewsVerification are only present when the matching collaborator is
// configured.
type EnrichedPost struct {
	Post
	Sentiment        Sentiment         `json:"sentiment"`
	FakeNews         FakeNews          `json:"fake_news"`
	URLs             []string          `json:"urls"`
	ScannedURLs      []ScannedURL      `json:"scanned_urls,omitempty"`
	NewsVerification *NewsVerification `json:"news_verification,omitempty"`
}

// ScoredArticle is a news article with sentiment and misinformation scores.
// Nil scores mean the collaborator failed for that article.
type ScoredArticle struct {
	Article
	TitleSentiment       Sentiment  `json:"title_sentiment"`
	DescriptionSentiment *Sentiment `json:"description_sentiment,omitempty"`
	FakeNewsProbability  *float64   `json:"fake_news_probability,omitempty"`
}

// NewsResponse is the result of a news lookup for a keyword
type NewsResponse struct {
	Keyword  string          `json:"keyword"`
	Days     int             `json:"days"`
	Total    int             `json:"total_results"`
	Articles []ScoredArticle `json:"articles"`
}

// AnalyzeRequest represents the request to analyze a keyword
type AnalyzeRequest struct {
	Keyword   string `json:"keyword"`
	NumTweets *int   `json:"num_tweets,omitempty"`
	ClientIP  string `json:"-"`
}

// AnalyzeResponse represents the API response for an analysis
type AnalyzeResponse struct {
	Keyword string         `json:"keyword"`
	Tweets  []EnrichedPost `json:"tweets"`
	Total   int            `json:"total"`
}

// AnalysisEvent is published after a successful analysis
type AnalysisEvent struct {
	Keyword         string    `json:"keyword"`
	Requested       int       `json:"requested"`
	Returned        int       `json:"returned"`
	PotentiallyFake int       `json:"potentially_fake"`
	Unclassified    int       `json:"unclassified"`
	Timestamp       time.Time `json:"timestamp"`
}

// SearchEvent is published for every accepted analyze request
type SearchEvent struct {
	Keyword   string    `json:"keyword"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
