// Package frequency ranks terms and topics found in free text.
package frequency

import (
	"sort"
	"strings"
	"unicode"
)

// minTermLength is exclusive: tokens of this length or shorter are dropped
const minTermLength = 3

// TermCount is a term with its number of occurrences
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// StopWords is a set of lower-case words ignored by TopTerms
type StopWords map[string]struct{}

// NewStopWords builds a stop-word set from words
func NewStopWords(words ...string) StopWords {
	set := make(StopWords, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// Contains reports whether word is a stop word
func (s StopWords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// DefaultStopWords covers common English filler longer than three letters,
// plus prompt boilerplate.
var DefaultStopWords = NewStopWords(
	"about", "after", "also", "been", "before", "being", "could", "create",
	"does", "from", "generate", "give", "have", "here", "into", "just",
	"like", "make", "more", "most", "much", "please", "should", "show",
	"some", "such", "than", "that", "their", "them", "then", "there",
	"these", "they", "this", "those", "very", "want", "what", "when",
	"where", "which", "while", "will", "with", "would", "your",
)

// Tokenize lower-cases text, strips punctuation and splits on whitespace.
// Hyphenated and apostrophe words collapse into one token.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, text)
	return strings.Fields(cleaned)
}

// TopTerms counts the tokens of texts that are longer than three runes and
// not stop words, and returns at most n of them by descending count. Ties
// keep first-seen order. n <= 0 returns every term.
func TopTerms(texts []string, stop StopWords, n int) []TermCount {
	counts := make(map[string]int)
	var order []string

	for _, text := range texts {
		for _, token := range Tokenize(text) {
			if len([]rune(token)) <= minTermLength || stop.Contains(token) {
				continue
			}
			if _, seen := counts[token]; !seen {
				order = append(order, token)
			}
			counts[token]++
		}
	}

	result := make([]TermCount, 0, len(order))
	for _, term := range order {
		result = append(result, TermCount{Term: term, Count: counts[term]})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})

	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result
}
