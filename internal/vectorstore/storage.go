package vectorstore

import (
	"context"
	"errors"
	"sort"

	"ragchat/internal/domain"
)

// ErrNotPersisted is returned by Load when the backend holds no index yet.
var ErrNotPersisted = errors.New("no persisted index")

// Storage persists index entries and supports similarity search.
// Search results are ordered by descending score.
type Storage interface {
	Name() string
	// Init discards any existing entries and prepares an empty index.
	Init(ctx context.Context, dimension int) error
	// Load opens a previously persisted index.
	Load(ctx context.Context) error
	Upsert(ctx context.Context, entries []domain.IndexEntry) error
	Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Dimension() int
	// Flush makes upserted entries durable.
	Flush(ctx context.Context) error
	// Clear removes the index, persisted data included.
	Clear(ctx context.Context) error
	Close() error
}

// Dot returns the inner product of two vectors of possibly different length.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// TopK scores every entry against vector and returns the best topK,
// ties broken by insertion order.
func TopK(entries []domain.IndexEntry, vector []float32, topK int) []domain.SearchResult {
	results := make([]domain.SearchResult, len(entries))
	for i, e := range entries {
		results[i] = domain.SearchResult{Chunk: e.Chunk, Score: Dot(e.Vector, vector)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results
}
