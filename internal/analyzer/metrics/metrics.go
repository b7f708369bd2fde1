package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Metric names recorded by the analyzer
const (
	CacheHits           = "cache_hits"
	CacheMisses         = "cache_misses"
	CacheErrors         = "cache_errors"
	RateLimited         = "rate_limited"
	Retries             = "fetch_retries"
	RateLimitExhausted  = "rate_limit_exhausted"
	UpstreamErrors      = "upstream_errors"
	ClassifierFallbacks = "classifier_fallbacks"
	SentimentFallbacks  = "sentiment_fallbacks"
	URLScanFailures     = "url_scan_failures"
	NewsFallbacks       = "news_fallbacks"
	AnalyzeRequests     = "analyze_requests"
	AnalyzeFailures     = "analyze_failures"
	FetchDuration       = "fetch"
	AnalyzeDuration     = "analyze"
	PostsReturned       = "posts_returned"
)

type Metrics interface {
	IncrementCounter(name string)
	IncrementCounterWithLabels(name string, labels map[string]string)
	RecordDuration(name string, duration time.Duration)
	RecordGauge(name string, value float64)
}

// Simple in-memory metrics implementation
type InMemoryMetrics struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]float64
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
	}
}

func (m *InMemoryMetrics) IncrementCounter(name string) {
	m.mu.Lock()
	m.counters[name]++
	m.mu.Unlock()
}

// IncrementCounterWithLabels folds labels into the key, e.g. name{kind=x}.
func (m *InMemoryMetrics) IncrementCounterWithLabels(name string, labels map[string]string) {
	m.IncrementCounter(labeledName(name, labels))
}

func (m *InMemoryMetrics) RecordDuration(name string, duration time.Duration) {
	// Convert to milliseconds
	m.RecordGauge(name+"_duration_ms", float64(duration.Nanoseconds())/1e6)
}

func (m *InMemoryMetrics) RecordGauge(name string, value float64) {
	m.mu.Lock()
	m.gauges[name] = value
	m.mu.Unlock()
}

func (m *InMemoryMetrics) GetCounters() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]int64, len(m.counters))
	for name, v := range m.counters {
		result[name] = v
	}
	return result
}

func (m *InMemoryMetrics) GetGauges() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]float64, len(m.gauges))
	for name, v := range m.gauges {
		result[name] = v
	}
	return result
}

func labeledName(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + labels[k]
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncrementCounter(string) {}
func (Nop) IncrementCounterWithLabels(string, map[string]string) {}
func (Nop) RecordDuration(string, time.Duration) {}
func (Nop) RecordGauge(string, float64) {}
