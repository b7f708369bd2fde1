package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
	"github.com/umanagarjuna/tweet-analyzer/pkg/validator"
)

// Analyzer is the service behind the transports.
type Analyzer interface {
	Analyze(ctx context.Context, req *domain.AnalyzeRequest) (*domain.AnalyzeResponse, error)
}

// NewsFinder serves keyword news lookups.
type NewsFinder interface {
	News(ctx context.Context, keyword string, days *int) (*domain.NewsResponse, error)
}

// MetricsSnapshot exposes collected metrics.
type MetricsSnapshot interface {
	GetCounters() map[string]int64
	GetGauges() map[string]float64
}

type HTTPHandler struct {
	service Analyzer
	metrics MetricsSnapshot
	news    NewsFinder
	limiter *RateLimiter
	logger  *zap.Logger
	started time.Time
}

type HTTPOption func(*HTTPHandler)

// WithNews serves GET /news from n.
func WithNews(n NewsFinder) HTTPOption {
	return func(h *HTTPHandler) { h.news = n }
}

// NewHTTPHandler builds the handler. limiter may be nil to disable rate
// limiting of /analyze.
func NewHTTPHandler(service Analyzer, metrics MetricsSnapshot, limiter *RateLimiter,
	logger *zap.Logger, opts ...HTTPOption) *HTTPHandler {

	h := &HTTPHandler{
		service: service,
		metrics: metrics,
		limiter: limiter,
		logger:  logger,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	analyze := []gin.HandlerFunc{h.Analyze}
	if h.limiter != nil {
		analyze = append([]gin.HandlerFunc{h.limiter.Middleware()}, analyze...)
	}
	router.POST("/analyze", analyze...)

	if h.news != nil {
		news := []gin.HandlerFunc{h.News}
		if h.limiter != nil {
			news = append([]gin.HandlerFunc{h.limiter.Middleware()}, news...)
		}
		router.GET("/news", news...)
	}

	router.GET("/health", h.Health)
	router.GET("/metrics", h.Metrics)
}

func (h *HTTPHandler) Analyze(c *gin.Context) {
	var req domain.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	req.ClientIP = c.ClientIP()

	resp, err := h.service.Analyze(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, validator.ErrEmptyKeyword):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No keyword provided"})
		case errors.Is(err, domain.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to analyze keyword",
				zap.Error(err),
				zap.String("keyword", req.Keyword),
				zap.String("request_id", c.GetString(requestIDKey)))
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) News(c *gin.Context) {
	var days *int
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
			return
		}
		days = &n
	}
	keyword := c.Query("keyword")

	resp, err := h.news.News(c.Request.Context(), keyword, days)
	if err != nil {
		switch {
		case errors.Is(err, validator.ErrEmptyKeyword):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No keyword provided"})
		case errors.Is(err, domain.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrNewsUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to fetch news",
				zap.Error(err),
				zap.String("keyword", keyword),
				zap.String("request_id", c.GetString(requestIDKey)))
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *HTTPHandler) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, gin.H{"counters": gin.H{}, "gauges": gin.H{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"counters": h.metrics.GetCounters(),
		"gauges":   h.metrics.GetGauges(),
	})
}
