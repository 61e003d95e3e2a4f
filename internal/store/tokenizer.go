package store

import (
	"strings"
	"unicode"
)

// DefaultStopWords covers English and Turkish function words that carry no
// retrieval signal in documentation text.
var DefaultStopWords = []string{
	// English
	"a", "an", "and", "are", "as", "at", "be", "by", "can", "do", "does",
	"for", "from", "how", "i", "in", "is", "it", "of", "on", "or", "the",
	"this", "to", "with", "you", "your",
	// Turkish
	"bir", "bu", "da", "de", "için", "ile", "mi", "mı", "mu", "mü", "ne",
	"nasıl", "ve", "veya", "ya",
}

// FoldCase lowercases s so that Turkish dotted capital İ becomes i while
// ASCII I still becomes i. English text such as "API" is unaffected.
func FoldCase(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "İ", "i"))
}

// Token is a term with its byte span in the source text.
type Token struct {
	Term  string
	Start int
	End   int
}

// Tokenize splits text into lowercase terms on any non letter/digit rune.
// Identifiers are further split on camelCase and snake_case boundaries so
// code chunks match natural-language queries. Terms shorter than two
// runes are dropped.
func Tokenize(text string) []string {
	spans := TokenizeSpans(text)
	terms := make([]string, len(spans))
	for i, t := range spans {
		terms[i] = t.Term
	}
	return terms
}

// TokenizeSpans is Tokenize keeping byte offsets, for index highlighting.
func TokenizeSpans(text string) []Token {
	var tokens []Token

	wordStart := -1
	flush := func(end int) {
		if wordStart < 0 {
			return
		}
		offset := wordStart
		for _, part := range SplitIdentifier(text[wordStart:end]) {
			start := offset + strings.Index(text[offset:end], part)
			offset = start + len(part)
			lower := FoldCase(part)
			if len([]rune(lower)) >= 2 {
				tokens = append(tokens, Token{Term: lower, Start: start, End: offset})
			}
		}
		wordStart = -1
	}

	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			if wordStart < 0 {
				wordStart = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))
	return tokens
}

// SplitIdentifier splits snake_case and camelCase words.
//
//	"getUserById"   -> ["get", "User", "By", "Id"]
//	"HTTPHandler"   -> ["HTTP", "Handler"]
//	"push_token_id" -> ["push", "token", "id"]
func SplitIdentifier(word string) []string {
	var result []string
	for _, part := range strings.Split(word, "_") {
		if part != "" {
			result = append(result, splitCamelCase(part)...)
		}
	}
	return result
}

func splitCamelCase(s string) []string {
	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if (prevLower || nextLower) && current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// BuildStopWordMap converts stop words to a case-folded lookup set.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		m[FoldCase(w)] = struct{}{}
	}
	return m
}
