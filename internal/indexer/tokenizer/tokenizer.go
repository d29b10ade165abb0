// Package tokenizer provides text tokenisation for the search engine.
// It splits on runs of non-word characters (anything other than an ASCII
// letter, digit or underscore) and lower-cases every surviving token. Non-ASCII
// letters are separators, so "café" yields "caf". There is no stemming and no
// stop-word removal.
package tokenizer

import (
	"strings"
)

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into a slice of lowercased Tokens. Empty input
// yields an empty, non-nil slice.
func Tokenize(text string) []Token {
	words := strings.FieldsFunc(text, isSeparator)
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{
			Term:     strings.ToLower(word),
			Position: pos,
		})
	}
	return tokens
}

// Terms is Tokenize without positions.
func Terms(text string) []string {
	words := strings.FieldsFunc(text, isSeparator)
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	if words == nil {
		return []string{}
	}
	return words
}

// Count returns term -> occurrences for text.
func Count(text string) map[string]int {
	counts := make(map[string]int)
	for _, term := range Terms(text) {
		counts[term]++
	}
	return counts
}

// isSeparator is the complement of the ASCII word class [A-Za-z0-9_].
// Tokens therefore only hold ASCII, and strings.ToLower folds them ASCII-only.
func isSeparator(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return false
	}
	return true
}
