package cache

import (
	"context"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

// Cache stores the post sequence fetched for a keyword. Keywords are used
// verbatim; no case or whitespace folding is applied.
type Cache interface {
	// Get returns the cached posts and true on an unexpired hit.
	Get(ctx context.Context, keyword string) ([]domain.Post, bool, error)
	// Set stores posts under keyword with a fresh expiration.
	Set(ctx context.Context, keyword string, posts []domain.Post) error
}
