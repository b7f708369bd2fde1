package scoring

import (
	"strings"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
)

const (
	// MinSourceSimilarity is the share of post words an article must
	// contain to be listed as a source.
	MinSourceSimilarity = 0.2

	// VerifiedConfidence is the best similarity above which a post counts
	// as verified.
	VerifiedConfidence = 0.3
)

// VerifyWithNews compares a post against news articles on the same keyword.
// Similarity is the share of the post's distinct words found in an article's
// title and description.
func VerifyWithNews(text string, articles []domain.Article) domain.NewsVerification {
	result := domain.NewsVerification{Sources: []domain.NewsSource{}}

	postWords := wordSet(text)
	if len(postWords) == 0 {
		return result
	}

	for _, a := range articles {
		articleWords := wordSet(a.Title + " " + a.Description)
		common := 0
		for w := range postWords {
			if _, ok := articleWords[w]; ok {
				common++
			}
		}

		similarity := float64(common) / float64(len(postWords))
		if similarity <= MinSourceSimilarity {
			continue
		}
		result.Sources = append(result.Sources, domain.NewsSource{
			Title:           a.Title,
			URL:             a.URL,
			Source:          a.Source,
			SimilarityScore: round3(similarity),
		})
		if similarity > result.Confidence {
			result.Confidence = similarity
		}
	}

	result.Confidence = round3(result.Confidence)
	result.Verified = result.Confidence > VerifiedConfidence
	return result
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
