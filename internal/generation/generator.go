// Package generation turns retrieved context into an answer using an LLM.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ragchat/internal/domain"
	"ragchat/internal/llm"
	"ragchat/internal/tracing"
)

// DefaultTimeout bounds a single LLM call.
const DefaultTimeout = 60 * time.Second

type Generator struct {
	client  llm.Client
	timeout time.Duration
}

func New(client llm.Client, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{client: client, timeout: timeout}
}

// Answer asks the model once. Failures wrap domain.ErrGeneration together with
// the failure kind reported by the client.
func (g *Generator) Answer(ctx context.Context, question, history string, chunks []string) (answer string, err error) {
	ctx, span := tracing.Start(ctx, "generate",
		attribute.String("provider", g.client.Name()),
		attribute.String("model", g.client.Model()),
		attribute.Int("chunks", len(chunks)),
	)
	defer func() { tracing.End(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := RenderPrompt(question, history, chunks)
	start := time.Now()
	answer, err = g.client.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: %w: empty answer", domain.ErrGeneration, domain.ErrMalformedResponse)
	}
	slog.Debug("answer generated", "provider", g.client.Name(), "elapsed", time.Since(start).Round(time.Millisecond))
	return answer, nil
}
