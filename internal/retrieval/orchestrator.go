// Package retrieval turns a question plus conversation history into the most
// relevant indexed chunks.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"ragchat/internal/domain"
	"ragchat/internal/tracing"
	"ragchat/internal/vectorstore"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

type Orchestrator struct {
	embedder domain.Embedder
	store    vectorstore.Storage
	topK     int
}

func New(embedder domain.Embedder, store vectorstore.Storage, topK int) *Orchestrator {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Orchestrator{embedder: embedder, store: store, topK: topK}
}

func (o *Orchestrator) TopK() int { return o.topK }

// BuildQuery folds history into the retrieval query so that follow-up
// questions ("and Germany?") still match the topic being discussed.
func BuildQuery(history, question string) string {
	if history == "" {
		return question
	}
	return "Conversation history:\n" + history + "\n\nCurrent question: " + question
}

// Retrieve returns up to topK chunks, most relevant first. An empty index
// yields no results and no error.
func (o *Orchestrator) Retrieve(ctx context.Context, question, history string) (results []domain.SearchResult, err error) {
	ctx, span := tracing.Start(ctx, "retrieve", attribute.Int("top_k", o.topK))
	defer func() { tracing.End(span, err) }()

	query := BuildQuery(history, question)
	vec, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrRetrieval, err)
	}
	results, err = o.store.Search(ctx, vec, o.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %w", domain.ErrRetrieval, o.store.Name(), err)
	}
	span.SetAttributes(attribute.Int("results", len(results)))
	slog.Debug("retrieved chunks", "results", len(results), "with_history", history != "")
	return results, nil
}

// Texts extracts chunk texts in result order.
func Texts(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Chunk.Text
	}
	return out
}
