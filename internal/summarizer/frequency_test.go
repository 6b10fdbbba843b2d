package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_KeepsDocumentOrder(t *testing.T) {
	text := "Paris is the capital of France. Bananas are yellow. " +
		"France borders Germany. The capital of Germany is Berlin."
	got, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.NotContains(t, got, "Bananas")

	all, err := NewFrequencySummarizer().Summarize(text, 10)
	require.NoError(t, err)
	assert.Equal(t, text, all)
}

func TestSummarize_Edges(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("  ", 0)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = NewFrequencySummarizer().Summarize("no terminator here", 0)
	require.NoError(t, err)
	assert.Equal(t, "no terminator here", got)
}
