package domain

import (
	"strings"
	"unicode/utf8"
)

// charsPerToken is the fixed ratio used to approximate token counts.
const charsPerToken = 4

// EstimateTokens approximates the token count of text as ceil(chars/4).
// Characters are counted as runes.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// CountWords counts whitespace-delimited words. The relay uses it to
// approximate completion tokens in the usage record; it is deliberately a
// different measure than EstimateTokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
