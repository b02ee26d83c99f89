package lexical

import "strings"

// Stop words filtered out before overlap computation. Tokens surviving this
// filter are the "content words" of a phrase.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "or": true, "any": true, "other": true,
	"all": true, "its": true, "their": true, "such": true, "under": true,
	"into": true, "between": true, "related": true, "general": true,
}

// tokenize splits text into lowercase alphabetic tokens of at least two
// characters. Digits and punctuation act as separators.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() >= 2 {
			tokens = append(tokens, current.String())
		}
		current.Reset()
	}

	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r > 127 && isLetterRune(r)) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func isLetterRune(r rune) bool {
	// Accept accented letters so non-ASCII labels tokenize sensibly.
	return (r >= 0xC0 && r <= 0x24F)
}

// contentWords strips stop words from tokens. Falls back to all tokens when
// nothing survives, so single-stopword queries still score.
func contentWords(tokens []string) []string {
	filtered := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !stopWords[tok] {
			filtered = append(filtered, tok)
		}
	}
	if len(filtered) == 0 {
		return tokens
	}
	return filtered
}

// ContentWords exposes tokenization plus stop-word filtering for callers
// that generate search variants.
func ContentWords(text string) []string {
	return contentWords(tokenize(text))
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
