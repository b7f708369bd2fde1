package enrich

import (
	"reflect"
	"testing"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single", "see http://a.co and more", []string{"http://a.co"}},
		{"ordered", "https://x.com/a then http://b.io/p?q=1", []string{"https://x.com/a", "http://b.io/p?q=1"}},
		{"trailing punctuation kept", "read https://a.co/x.", []string{"https://a.co/x."}},
		{"none", "no links here", []string{}},
		{"not a scheme", "ftp://a.co www.b.com", []string{}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractURLs(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractURLs(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
