// Package scoring holds the sentiment and misinformation collaborators used
// to enrich posts. Callers treat their output as opaque.
package scoring

import (
	"context"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

// SentimentAnalyzer scores the sentiment of a text.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (domain.Sentiment, error)
}

// FakeNewsClassifier estimates how likely a text is misinformation.
type FakeNewsClassifier interface {
	Classify(ctx context.Context, text string) (domain.FakeNews, error)
}

// URLScanner submits a link for a malicious content scan.
type URLScanner interface {
	Scan(ctx context.Context, url string) (domain.ScannedURL, error)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
