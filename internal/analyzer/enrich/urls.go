package enrich

import "regexp"

// urlRegex matches http(s) links up to the next whitespace. Trailing
// punctuation is kept.
var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURLs returns the links in text in order of appearance. The result
// is never nil.
func ExtractURLs(text string) []string {
	urls := urlRegex.FindAllString(text, -1)
	if urls == nil {
		return []string{}
	}
	return urls
}
