// Package tokenizer splits document content into terms. Terms are taken
// verbatim: there is no case-folding, stemming or stop-word removal, so the
// query side must spell a term exactly as it was indexed.
package tokenizer

import (
	"strings"
	"unicode"
)

// Delimiter separates terms in document content.
const Delimiter = " "

// Tokenize splits text on Delimiter and counts each term. Residual
// whitespace (tabs, newlines) inside a segment is stripped; segments that end
// up empty are dropped and not counted.
func Tokenize(text string) map[string]int {
	counts, _ := tokenize(text)
	return counts
}

// TermFrequencies returns count(term)/segments for every term in text, where
// segments is the number of non-empty segments including duplicates. Empty
// text yields an empty map.
func TermFrequencies(text string) map[string]float64 {
	counts, total := tokenize(text)
	freqs := make(map[string]float64, len(counts))
	if total == 0 {
		return freqs
	}
	for term, n := range counts {
		freqs[term] = float64(n) / float64(total)
	}
	return freqs
}

func tokenize(text string) (map[string]int, int) {
	counts := make(map[string]int)
	total := 0
	if text == "" {
		return counts, 0
	}
	for _, segment := range strings.Split(text, Delimiter) {
		term := stripSpace(segment)
		if term == "" {
			continue
		}
		counts[term]++
		total++
	}
	return counts, total
}

func stripSpace(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
