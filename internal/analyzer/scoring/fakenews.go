package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

// PotentiallyFakeThreshold is the probability above which a text is
// labelled POTENTIALLY_FAKE.
const PotentiallyFakeThreshold = 0.6

// HeuristicClassifier flags sensational text: strongly polarized and
// heavily opinionated posts score high. It needs no remote service.
type HeuristicClassifier struct {
	lexicon *LexiconAnalyzer
}

func NewHeuristicClassifier(lexicon *LexiconAnalyzer) *HeuristicClassifier {
	return &HeuristicClassifier{lexicon: lexicon}
}

// Classify combines sentiment extremity (weight 0.6) with subjectivity
// (weight 0.4). Confidence is fixed at 2/3: only two of the three
// hosted signals are approximated locally.
func (c *HeuristicClassifier) Classify(_ context.Context, text string) (domain.FakeNews, error) {
	s := c.lexicon.score(text)

	extremity := math.Abs(normalize(s.sum))
	probability := round3(clamp01(0.6*extremity + 0.4*subjectivity(s)))

	label := domain.LabelLikelyReal
	if probability > PotentiallyFakeThreshold {
		label = domain.LabelPotentiallyFake
	}
	return domain.FakeNews{
		Label:      label,
		Score:      probability,
		Confidence: round3(2.0 / 3.0),
	}, nil
}

// subjectivity is the share of opinion-bearing tokens, nudged up by
// exclamation marks and shouted words.
func subjectivity(s lexiconScore) float64 {
	if s.tokens == 0 {
		return 0
	}
	ratio := float64(s.hits) / float64(s.tokens)
	emphasis := 0.1*float64(s.exclaims) + 0.1*float64(s.shouted)
	return clamp01(2*ratio + emphasis)
}

// HuggingFaceClassifier calls a hosted text-classification model.
type HuggingFaceClassifier struct {
	client   *http.Client
	endpoint string
	token    string
}

type HuggingFaceConfig struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

func NewHuggingFaceClassifier(cfg HuggingFaceConfig) *HuggingFaceClassifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HuggingFaceClassifier{
		client:   &http.Client{Timeout: timeout},
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
	}
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify returns the top label of the model. Any failure is returned as
// is; the caller decides how to degrade.
func (c *HuggingFaceClassifier) Classify(ctx context.Context, text string) (domain.FakeNews, error) {
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return domain.FakeNews{}, fmt.Errorf("failed to marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.FakeNews{}, fmt.Errorf("failed to build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.FakeNews{}, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.FakeNews{}, fmt.Errorf("failed to read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.FakeNews{}, fmt.Errorf("inference API returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	scores, err := decodeLabelScores(body)
	if err != nil {
		return domain.FakeNews{}, err
	}

	top := scores[0]
	for _, s := range scores[1:] {
		if s.Score > top.Score {
			top = s
		}
	}
	return domain.FakeNews{
		Label:      strings.ToUpper(top.Label),
		Score:      clamp01(top.Score),
		Confidence: clamp01(top.Score),
	}, nil
}

// decodeLabelScores accepts both [{...}] and [[{...}]] shapes.
func decodeLabelScores(body []byte) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}

	var flat []labelScore
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("inference response has no labels")
	}
	return flat, nil
}
