package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"ragchat/internal/textutil"
)

// DefaultDimension matches the width of common MiniLM sentence encoders.
const DefaultDimension = 384

// Embedder maps text to a fixed-width term-frequency vector using signed
// feature hashing. Each token lands in two buckets so that a single bucket
// collision does not decide a ranking. Vectors are L2-normalised, which makes
// the dot product equal to cosine similarity.
type Embedder struct {
	dimension int
}

// NewEmbedder creates a hashing embedder. dimension <= 0 selects DefaultDimension.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Name identifies the embedder and its width; it is part of the index fingerprint.
func (e *Embedder) Name() string { return fmt.Sprintf("hashing-v1-%d", e.dimension) }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the hashed embedding for the given text. Text without any
// content token yields the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, e.dimension)
	tokens := textutil.Tokens(text)
	if len(tokens) == 0 {
		return make([]float32, e.dimension), nil
	}
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	total := float64(len(tokens))
	for tok, count := range tf {
		w := float64(count) / total
		for seed := uint32(0); seed < 2; seed++ {
			idx, sign := e.bucket(tok, seed)
			vec[idx] += sign * w
		}
	}
	// L2 normalize
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, e.dimension)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (e *Embedder) bucket(token string, seed uint32) (int, float64) {
	h := fnv.New32a()
	_, _ = h.Write([]byte{byte(seed)})
	_, _ = h.Write([]byte(token))
	sum := h.Sum32()
	sign := 1.0
	if sum&(1<<31) != 0 {
		sign = -1.0
	}
	return int(sum % uint32(e.dimension)), sign
}
