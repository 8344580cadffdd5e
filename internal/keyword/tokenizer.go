package keyword

import (
	"regexp"
	"strings"
)

// tokenRegex matches alphanumeric word sequences.
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// DefaultStopWords are high-frequency English terms that carry no ranking
// signal for scraped web text.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by",
	"for", "from", "has", "have", "if", "in", "into", "is", "it",
	"its", "no", "not", "of", "on", "or", "such", "that", "the",
	"their", "then", "there", "these", "they", "this", "to", "was",
	"were", "will", "with",
}

// MinTokenLength is the minimum token length indexed.
const MinTokenLength = 2

// Tokenize splits text into lowercase terms, dropping stop words and
// tokens shorter than MinTokenLength. The same analyzer runs at index and
// query time so term spaces always match.
func Tokenize(text string, stopWords map[string]struct{}) []string {
	words := tokenRegex.FindAllString(text, -1)

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		lower := strings.ToLower(word)
		if len(lower) < MinTokenLength {
			continue
		}
		if _, isStop := stopWords[lower]; isStop {
			continue
		}
		tokens = append(tokens, lower)
	}
	return tokens
}

// BuildStopWordMap converts a slice of stop words to a set for lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
