package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimitExhausted is returned when retries are consumed and the
	// upstream is still throttling.
	ErrRateLimitExhausted = errors.New("rate limit exceeded and retries exhausted")

	// ErrUpstream is returned for any other remote failure.
	ErrUpstream = errors.New("failed to fetch posts")

	// ErrValidation is returned for a missing or malformed request.
	ErrValidation = errors.New("invalid request")

	// ErrClassificationUnavailable marks a scoring collaborator failure. It is
	// never returned to callers; the post gets a sentinel result instead.
	ErrClassificationUnavailable = errors.New("classification unavailable")

	// ErrNewsUnavailable is returned by news lookups when no news API key is
	// configured.
	ErrNewsUnavailable = errors.New("news search is not configured")
)

// RateLimitError is returned by a source when the upstream answers with a
// rate-limit status. ResetAt is zero when the upstream did not say.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited until %s", e.ResetAt.UTC().Format(time.RFC3339))
}

// FetchError is the failure outcome of a pipeline fetch.
type FetchError struct {
	Kind    error // ErrRateLimitExhausted or ErrUpstream
	Keyword string
	Retries int // retries consumed before giving up
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (keyword %q, %d retries)", e.Kind, e.Keyword, e.Retries)
	}
	return fmt.Sprintf("%v (keyword %q, %d retries): %v", e.Kind, e.Keyword, e.Retries, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
