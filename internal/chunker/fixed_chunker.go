package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"ragchat/internal/domain"
)

// FixedChunker cuts a document into windows of a fixed number of runes.
// Consecutive windows share overlap runes.
type FixedChunker struct {
	size    int
	overlap int
}

func NewFixedChunker(size, overlap int) *FixedChunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &FixedChunker{size: size, overlap: overlap}
}

func (c *FixedChunker) Name() string {
	return fmt.Sprintf("fixed:%d:%d", c.size, c.overlap)
}

func (c *FixedChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	runes := []rune(document.Content)
	var chunks []domain.Chunk
	step := c.size - c.overlap
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		text := string(runes[start:end])
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, newChunk(document, len(chunks), text, start))
		}
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

func newChunk(document domain.Document, idx int, text string, offset int) domain.Chunk {
	return domain.Chunk{
		ID:         document.ID + ":" + strconv.Itoa(idx),
		DocumentID: document.ID,
		Index:      idx,
		Text:       text,
		Offset:     offset,
		Source:     document.Path,
	}
}
