package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensDropsStopwords(t *testing.T) {
	assert.Equal(t, []string{"color", "sky"}, Tokens("What color is the sky?"))
	assert.Equal(t, []string{"capital", "france"}, Tokens("What is the capital of France?"))
}

func TestSentencesKeepsOffsetsAndTrailingText(t *testing.T) {
	text := "Paris is the capital of France.\nBerlin is the capital of Germany. Rome"
	spans := Sentences(text)
	require.Len(t, spans, 3)

	assert.Equal(t, "Paris is the capital of France.", spans[0].Text)
	assert.Equal(t, 0, spans[0].Offset)
	assert.Equal(t, "Berlin is the capital of Germany.", spans[1].Text)
	assert.Equal(t, 32, spans[1].Offset)
	assert.Equal(t, "Rome", spans[2].Text)
}

func TestSentencesEmpty(t *testing.T) {
	assert.Empty(t, Sentences("  \n\t"))
}
