package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

func newTestSource(t *testing.T, h http.HandlerFunc) *TwitterSource {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewTwitterSource(Config{BaseURL: srv.URL, BearerToken: "token", Timeout: 2 * time.Second})
}

func writePage(w http.ResponseWriter, from, n int, next string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"data":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		fmt.Fprintf(w, `{"id":"%d","text":"post %d","author_id":"u%d","created_at":"2026-01-01T12:00:00.000Z"}`,
			from+i, from+i, from+i)
	}
	fmt.Fprintf(w, `],"meta":{"result_count":%d,"next_token":%q}}`, n, next)
}

func TestSearch_SendsQueryAndAuth(t *testing.T) {
	var gotQuery, gotAuth, gotFields, gotMax string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != searchPath {
			t.Errorf("path: got %s, want %s", r.URL.Path, searchPath)
		}
		gotQuery = r.URL.Query().Get("query")
		gotFields = r.URL.Query().Get("tweet.fields")
		gotMax = r.URL.Query().Get("max_results")
		gotAuth = r.Header.Get("Authorization")
		writePage(w, 0, 10, "")
	})

	posts, err := src.Search(context.Background(), "Election 2026", 10)

	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(posts) != 10 {
		t.Fatalf("got %d posts, want 10", len(posts))
	}
	if gotQuery != "Election 2026" {
		t.Errorf("query: got %q", gotQuery)
	}
	if gotAuth != "Bearer token" {
		t.Errorf("auth: got %q", gotAuth)
	}
	if gotFields != "created_at,author_id,text" {
		t.Errorf("tweet.fields: got %q", gotFields)
	}
	if gotMax != "10" {
		t.Errorf("max_results: got %q", gotMax)
	}
	if posts[3].AuthorID != "u3" || posts[3].CreatedAt.IsZero() {
		t.Errorf("post not decoded: %+v", posts[3])
	}
}

func TestSearch_SmallCountIsTruncated(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("max_results"); got != "10" {
			t.Errorf("max_results: got %s, want the API minimum 10", got)
		}
		writePage(w, 0, 10, "next")
	})

	posts, err := src.Search(context.Background(), "go", 3)

	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(posts) != 3 {
		t.Errorf("got %d posts, want 3", len(posts))
	}
}

func TestSearch_FollowsNextToken(t *testing.T) {
	var calls int32
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch n {
		case 1:
			if r.URL.Query().Get("max_results") != "100" {
				t.Errorf("first page size: got %s", r.URL.Query().Get("max_results"))
			}
			writePage(w, 0, 100, "page2")
		default:
			if r.URL.Query().Get("next_token") != "page2" {
				t.Errorf("next_token: got %q", r.URL.Query().Get("next_token"))
			}
			if r.URL.Query().Get("max_results") != "20" {
				t.Errorf("second page size: got %s", r.URL.Query().Get("max_results"))
			}
			writePage(w, 100, 20, "page3")
		}
	})

	posts, err := src.Search(context.Background(), "go", 120)

	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(posts) != 120 {
		t.Errorf("got %d posts, want 120", len(posts))
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestSearch_StopsWithoutNextToken(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		writePage(w, 0, 4, "")
	})

	posts, err := src.Search(context.Background(), "rare", 50)

	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(posts) != 4 {
		t.Errorf("got %d posts, want 4", len(posts))
	}
}

func TestSearch_RateLimitCarriesReset(t *testing.T) {
	reset := time.Now().Add(42 * time.Second).Unix()
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := src.Search(context.Background(), "go", 10)

	var rl *domain.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.ResetAt.Unix() != reset {
		t.Errorf("reset: got %d, want %d", rl.ResetAt.Unix(), reset)
	}
}

func TestSearch_RateLimitWithoutReset(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := src.Search(context.Background(), "go", 10)

	var rl *domain.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if !rl.ResetAt.IsZero() {
		t.Errorf("reset should be unknown, got %v", rl.ResetAt)
	}
}

func TestSearch_ServerErrorIsNotRateLimit(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})

	_, err := src.Search(context.Background(), "go", 10)

	if err == nil {
		t.Fatal("expected error")
	}
	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		t.Error("a 503 must not be reported as a rate limit")
	}
}

func TestSearch_MalformedBody(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{not json")
	})

	if _, err := src.Search(context.Background(), "go", 10); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCheck_ReturnsCount(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		writePage(w, 0, 10, "")
	})

	n, err := src.Check(context.Background())

	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if n != 10 {
		t.Errorf("got %d, want 10", n)
	}
}

func TestParseReset(t *testing.T) {
	tests := []struct {
		in   string
		zero bool
	}{
		{"1700000000", false},
		{"", true},
		{"soon", true},
		{"-5", true},
	}
	for _, tt := range tests {
		got := parseReset(tt.in)
		if got.IsZero() != tt.zero {
			t.Errorf("parseReset(%q) = %v, zero want %v", tt.in, got, tt.zero)
		}
	}
}
