package hashing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestEmbed_Deterministic(t *testing.T) {
	e := NewEmbedder(0)
	ctx := context.Background()
	a, err := e.Embed(ctx, "The sky is blue.")
	require.NoError(t, err)
	b, err := NewEmbedder(0).Embed(ctx, "The sky is blue.")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimension)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, dot(a, a), 1e-5)
}

func TestEmbed_SharedTermsScoreHigher(t *testing.T) {
	e := NewEmbedder(0)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "What color is the sky?")
	sky, _ := e.Embed(ctx, "The sky is blue.")
	bananas, _ := e.Embed(ctx, "Bananas are yellow.")

	assert.Greater(t, dot(q, sky), dot(q, bananas))
}

func TestEmbed_StopwordsOnlyIsZero(t *testing.T) {
	v, err := NewEmbedder(8).Embed(context.Background(), "what is the")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
}

func TestName_IncludesDimension(t *testing.T) {
	assert.Equal(t, "hashing-v1-384", NewEmbedder(0).Name())
	assert.Equal(t, "hashing-v1-64", NewEmbedder(64).Name())
}
