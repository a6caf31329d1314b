package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTokenLength drops single-character tokens ("a", "s" from "Joe's").
const minTokenLength = 2

// stopWords are ignored both at index and query time.
var stopWords = buildStopWordMap([]string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from", "has", "have",
	"in", "into", "is", "it", "its", "of", "on", "or", "our", "so", "that", "the", "their",
	"then", "there", "these", "this", "to", "was", "we", "were", "will", "with", "you", "your",
})

// Tokenize splits s into lowercase letter/digit runs, dropping short tokens and stop words.
func Tokenize(s string) []string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < minTokenLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

func buildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
