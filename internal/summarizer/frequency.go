// Package summarizer produces the short extractive document summary shown when
// a session starts.
package summarizer

import (
	"math"
	"sort"
	"strings"

	"ragchat/internal/textutil"
)

// DefaultMaxSentences is used when a non-positive limit is requested.
const DefaultMaxSentences = 3

// FrequencySummarizer ranks sentences by the normalised frequency of their
// content words.
type FrequencySummarizer struct{}

func NewFrequencySummarizer() *FrequencySummarizer { return &FrequencySummarizer{} }

func (s *FrequencySummarizer) Name() string { return "frequency" }

// Summarize returns up to maxSentences sentences of text, kept in document order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	spans := textutil.Sentences(text)
	if len(spans) == 0 {
		return strings.TrimSpace(text), nil
	}

	tokens := make([][]string, len(spans))
	freq := map[string]float64{}
	for i, sp := range spans {
		tokens[i] = textutil.Tokens(sp.Text)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(spans))
	for i, toks := range tokens {
		score := 0.0
		for _, tok := range toks {
			score += freq[tok]
		}
		// Normalise by length so long sentences do not always win.
		if l := float64(len(toks)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = spans[idx].Text
	}
	return strings.Join(out, " "), nil
}
