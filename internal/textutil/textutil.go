// Package textutil holds the tokenizer, stopword list and sentence splitter
// shared by the chunker, the local embedder, the summarizer and the TUI.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// Words returns the lowercased words of text, stopwords included.
func Words(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// Tokens returns the lowercased words of text with stopwords removed.
func Tokens(text string) []string {
	raw := Words(text)
	out := raw[:0]
	for _, t := range raw {
		if IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TokenSet returns the distinct words of text.
func TokenSet(text string) map[string]struct{} {
	words := Words(text)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Span is a sentence together with its rune offset in the source text.
type Span struct {
	Text   string
	Offset int
}

// Sentences splits text on terminal punctuation. Text after the last
// terminator is kept as a final sentence. Returned texts are trimmed and
// empty sentences are dropped.
func Sentences(text string) []Span {
	var spans []Span
	end := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		spans = appendSpan(spans, text, loc[0], loc[1])
		end = loc[1]
	}
	if end < len(text) {
		spans = appendSpan(spans, text, end, len(text))
	}
	return spans
}

func appendSpan(spans []Span, text string, start, end int) []Span {
	raw := text[start:end]
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return spans
	}
	lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n\f\v"))
	return append(spans, Span{
		Text:   trimmed,
		Offset: utf8.RuneCountInString(text[:start+lead]),
	})
}

// IsStopword reports whether w (lowercase) carries no retrieval signal.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "whom", "whose", "where", "when", "why", "how", "do", "does", "did", "i", "you", "he", "she", "we", "they", "me", "my", "your", "our", "its", "their", "there", "here", "has", "have", "had", "not", "no",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
