package scoring

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

//go:embed lexicon.txt
var defaultLexicon []byte

const (
	// normalizationAlpha approximates the maximum expected valence sum.
	normalizationAlpha = 15.0
	// negationScalar dampens and flips the valence after a negation word.
	negationScalar = -0.74
	// hitsForFullConfidence sentiment-bearing tokens give confidence 1.
	hitsForFullConfidence = 3.0

	MethodLexicon = "lexicon"
)

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "none": true, "nobody": true,
	"nothing": true, "neither": true, "nor": true, "cannot": true, "without": true,
}

// LexiconAnalyzer scores text against a word valence table.
type LexiconAnalyzer struct {
	valences map[string]float64
}

// NewLexiconAnalyzer loads the embedded lexicon.
func NewLexiconAnalyzer() (*LexiconAnalyzer, error) {
	valences, err := ParseLexicon(defaultLexicon)
	if err != nil {
		return nil, err
	}
	return &LexiconAnalyzer{valences: valences}, nil
}

// ParseLexicon reads "word<TAB>valence" lines; blank lines and lines
// starting with # are skipped.
func ParseLexicon(data []byte) (map[string]float64, error) {
	valences := make(map[string]float64)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("lexicon line %d: expected word and valence", line)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("lexicon line %d: %w", line, err)
		}
		valences[strings.ToLower(fields[0])] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}
	return valences, nil
}

// lexiconScore is the raw tally behind a sentiment result.
type lexiconScore struct {
	sum      float64
	posSum   float64
	negSum   float64
	hits     int
	tokens   int
	exclaims int
	shouted  int
}

func (a *LexiconAnalyzer) score(text string) lexiconScore {
	var s lexiconScore
	s.exclaims = strings.Count(text, "!")

	negated := false
	for _, raw := range tokenize(text) {
		s.tokens++
		if len([]rune(raw)) > 2 && raw == strings.ToUpper(raw) && strings.ToLower(raw) != raw {
			s.shouted++
		}
		word := strings.ToLower(raw)

		if negations[word] || strings.HasSuffix(word, "n't") {
			negated = true
			continue
		}

		v, ok := a.valences[word]
		if !ok {
			continue
		}
		if negated {
			v *= negationScalar
			negated = false
		}
		s.hits++
		s.sum += v
		if v > 0 {
			s.posSum += v + 1
		} else if v < 0 {
			s.negSum += v - 1
		}
	}
	return s
}

// Analyze implements SentimentAnalyzer. It never fails.
func (a *LexiconAnalyzer) Analyze(_ context.Context, text string) (domain.Sentiment, error) {
	s := a.score(text)

	result := domain.Sentiment{
		Compound:   normalize(s.sum),
		Confidence: clamp01(float64(s.hits) / hitsForFullConfidence),
		Methods:    []string{MethodLexicon},
	}

	neutral := float64(s.tokens - s.hits)
	total := s.posSum + math.Abs(s.negSum) + neutral
	if total == 0 {
		result.Neu = 1
		return result, nil
	}
	result.Pos = round3(s.posSum / total)
	result.Neg = round3(math.Abs(s.negSum) / total)
	result.Neu = round3(neutral / total)
	return result, nil
}

// normalize maps an unbounded valence sum into [-1, 1].
func normalize(sum float64) float64 {
	if sum == 0 {
		return 0
	}
	return round3(sum / math.Sqrt(sum*sum+normalizationAlpha))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
