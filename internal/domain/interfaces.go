package domain

import "context"

// Document represents a single text file loaded into the system.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a contiguous part of a document used for indexing.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Text       string
	Offset     int // rune offset in the source document
	Source     string
}

// IndexEntry pairs a chunk with its embedding vector.
type IndexEntry struct {
	Chunk  Chunk
	Vector []float32
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Turn is one question/answer exchange of a conversation.
type Turn struct {
	Question string
	Answer   string
}

// Prompt is the rendered text sent to a language model.
type Prompt struct {
	System string
	User   string
}

// Embedder converts free text into a fixed-length numeric vector.
type Embedder interface {
	Name() string
	// Dimension may return 0 until the first vector has been produced.
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Name() string
	Chunk(document Document) ([]Chunk, error)
}
