package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/embedding/hashing"
	"ragchat/internal/embedding/openai"
	"ragchat/internal/embedding/tfidf"
	"ragchat/internal/llm"
	"ragchat/internal/summarizer"
	"ragchat/internal/vectorstore"
	"ragchat/internal/vectorstore/local"
	"ragchat/internal/vectorstore/memory"
	"ragchat/internal/vectorstore/qdrant"
)

func buildChunker(cfg *config.AppConfig) (domain.Chunker, error) {
	switch cfg.Chunker.Type {
	case "fixed", "":
		return chunker.NewFixedChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("%w: unknown chunker: %s", domain.ErrConfiguration, cfg.Chunker.Type)
	}
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Embedder.Dimension), nil
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	case "openai":
		oc := cfg.Embedder.OpenAI
		key := strings.TrimSpace(os.Getenv(oc.APIKeyEnv))
		if key == "" {
			return nil, fmt.Errorf("%w: openai embedder needs %s", domain.ErrConfiguration, oc.APIKeyEnv)
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:           oc.BaseURL,
			APIKey:            key,
			Model:             oc.Model,
			Dimension:         cfg.Embedder.Dimension,
			Timeout:           time.Duration(oc.TimeoutSecs) * time.Second,
			RequestsPerMinute: oc.RequestsPerMinute,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: openai embedder: %w", domain.ErrConfiguration, err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder: %s", domain.ErrConfiguration, cfg.Embedder.Type)
	}
}

func buildStore(cfg *config.AppConfig) (vectorstore.Storage, error) {
	switch cfg.VectorStore.Type {
	case "local", "":
		return local.NewStorage(cfg.Index.Dir), nil
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Distance:   q.Distance,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store: %s", domain.ErrConfiguration, cfg.VectorStore.Type)
	}
}

// summarize returns the document summary, or "" when disabled.
func summarize(cfg *config.AppConfig, doc domain.Document) (string, error) {
	switch cfg.Summarizer.Type {
	case "frequency", "":
		return summarizer.NewFrequencySummarizer().Summarize(doc.Content, cfg.Summarizer.MaxSentences)
	case "none":
		return "", nil
	default:
		return "", fmt.Errorf("%w: unknown summarizer: %s", domain.ErrConfiguration, cfg.Summarizer.Type)
	}
}

// buildLLM resolves the API key (flag, environment, then an interactive
// prompt when stdin is a terminal) and creates the provider client.
func buildLLM(cfg *config.AppConfig, apiKey string) (llm.Client, error) {
	p, ok := llm.Lookup(cfg.Provider.Name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q (supported: %s)",
			domain.ErrConfiguration, cfg.Provider.Name, strings.Join(llm.ProviderNames(), ", "))
	}
	if apiKey == "" {
		apiKey, _ = llm.APIKeyFromEnv(p, cfg.Provider.APIKeyEnv)
	}
	if apiKey == "" && interactive() {
		key, err := promptPassword(fmt.Sprintf("%s API key", p.Name),
			fmt.Sprintf("Not found in %s", strings.Join(p.KeyEnv, " or ")))
		if err != nil {
			return nil, fmt.Errorf("%w: read API key: %w", domain.ErrConfiguration, err)
		}
		apiKey = strings.TrimSpace(key)
	}
	return llm.New(llm.Config{
		Provider:    p.Name,
		Model:       cfg.Provider.Model,
		BaseURL:     cfg.Provider.BaseURL,
		APIKey:      apiKey,
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: cfg.Provider.Temperature,
	})
}

func interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
