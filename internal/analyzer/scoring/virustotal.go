package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

const DefaultVirusTotalEndpoint = "https://www.virustotal.com/api/v3/urls"

// VirusTotalScanner submits links to the VirusTotal URL scan API. The scan
// itself runs asynchronously; the returned analysis ID identifies it.
type VirusTotalScanner struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

type VirusTotalConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

func NewVirusTotalScanner(cfg VirusTotalConfig) *VirusTotalScanner {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultVirusTotalEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &VirusTotalScanner{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
	}
}

type scanResponse struct {
	Data struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *VirusTotalScanner) Scan(ctx context.Context, link string) (domain.ScannedURL, error) {
	form := url.Values{}
	form.Set("url", link)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return domain.ScannedURL{}, fmt.Errorf("failed to build scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("x-apikey", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.ScannedURL{}, fmt.Errorf("scan request failed: %w", err)
	}
	defer resp.Body.Close()

	var body scanResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return domain.ScannedURL{}, fmt.Errorf("failed to decode scan response (status %d): %w",
			resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.ScannedURL{}, fmt.Errorf("scan API returned status %d: %s %s",
			resp.StatusCode, body.Error.Code, body.Error.Message)
	}
	if body.Data.ID == "" {
		return domain.ScannedURL{}, fmt.Errorf("scan response has no analysis id")
	}

	return domain.ScannedURL{URL: link, AnalysisID: body.Data.ID}, nil
}
