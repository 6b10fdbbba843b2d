// Package index owns the lifecycle of the persisted vector index: building it
// from a document, reopening it in later sessions and reporting staleness.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ragchat/internal/document"
	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	"ragchat/internal/tracing"
	"ragchat/internal/vectorstore"
)

// Status reports what Open or Rebuild did.
type Status struct {
	// Built is true when the index was (re)built during this call.
	Built bool
	// Stale is true when a reused index no longer matches the document or
	// the configured components. Stale indexes are reported, never rebuilt
	// implicitly.
	Stale        bool
	StaleReasons []string
	Chunks       int
	Manifest     Manifest
}

// Manager builds and reopens the index kept in dir.
type Manager struct {
	dir      string
	chunker  domain.Chunker
	embedder domain.Embedder
	store    vectorstore.Storage
}

func NewManager(dir string, chunker domain.Chunker, embedder domain.Embedder, store vectorstore.Storage) *Manager {
	return &Manager{dir: dir, chunker: chunker, embedder: embedder, store: store}
}

// Open reuses a persisted index when one exists and builds one otherwise.
// Unreadable persisted data is discarded and rebuilt.
func (m *Manager) Open(ctx context.Context, doc domain.Document) (Status, error) {
	manifest, err := ReadManifest(m.dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Info("no persisted index, building", "dir", m.dir)
		return m.Rebuild(ctx, doc)
	case err != nil:
		slog.Warn("index manifest unreadable, rebuilding", "dir", m.dir, "error", err)
		return m.Rebuild(ctx, doc)
	}

	if c, ok := m.embedder.(embedding.Corpus); ok {
		if err := c.Load(m.dir); err != nil {
			slog.Warn("embedder state unreadable, rebuilding", "dir", m.dir, "embedder", m.embedder.Name(), "error", err)
			return m.Rebuild(ctx, doc)
		}
	}

	if err := m.store.Load(ctx); err != nil {
		if errors.Is(err, vectorstore.ErrNotPersisted) {
			slog.Info("persisted index incomplete, building", "dir", m.dir, "store", m.store.Name())
		} else {
			slog.Warn("persisted index corrupt, rebuilding", "dir", m.dir, "store", m.store.Name(), "error", err)
		}
		return m.Rebuild(ctx, doc)
	}

	if dim := m.embedder.Dimension(); m.store.Dimension() != manifest.Dimension || (dim != 0 && dim != manifest.Dimension) {
		slog.Warn("index dimension does not match embedder, rebuilding",
			"index", m.store.Dimension(), "manifest", manifest.Dimension, "embedder", dim)
		return m.Rebuild(ctx, doc)
	}

	count, err := m.store.Count(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("%w: count index entries: %w", domain.ErrIngestion, err)
	}
	st := Status{Chunks: count, Manifest: *manifest}
	if reasons := manifest.Differences(m.fingerprint(doc)); len(reasons) > 0 {
		st.Stale = true
		st.StaleReasons = reasons
		slog.Warn("persisted index is stale; run with --rebuild to refresh it",
			"dir", m.dir, "reasons", strings.Join(reasons, "; "))
	}
	slog.Info("index loaded", "dir", m.dir, "store", m.store.Name(), "chunks", count)
	return st, nil
}

// Rebuild discards any persisted index and builds a fresh one from doc.
func (m *Manager) Rebuild(ctx context.Context, doc domain.Document) (st Status, err error) {
	ctx, span := tracing.Start(ctx, "index.build",
		attribute.String("document", doc.Path),
		attribute.String("embedder", m.embedder.Name()),
		attribute.String("chunker", m.chunker.Name()),
	)
	defer func() { tracing.End(span, err) }()

	if err := removeManifest(m.dir); err != nil {
		return Status{}, fmt.Errorf("%w: remove manifest: %w", domain.ErrIngestion, err)
	}
	if err := m.store.Clear(ctx); err != nil {
		return Status{}, fmt.Errorf("%w: clear store: %w", domain.ErrIngestion, err)
	}

	start := time.Now()
	chunks, err := m.chunker.Chunk(doc)
	if err != nil {
		return Status{}, fmt.Errorf("%w: chunk %s: %w", domain.ErrIngestion, doc.Path, err)
	}

	if c, ok := m.embedder.(embedding.Corpus); ok {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}
		if err := c.Fit(texts); err != nil {
			return Status{}, fmt.Errorf("%w: fit %s: %w", domain.ErrIngestion, m.embedder.Name(), err)
		}
	}

	entries := make([]domain.IndexEntry, 0, len(chunks))
	for i, c := range chunks {
		vec, err := m.embedder.Embed(ctx, c.Text)
		if err != nil {
			return Status{}, fmt.Errorf("%w: embed chunk %d: %w", domain.ErrIngestion, i, err)
		}
		entries = append(entries, domain.IndexEntry{Chunk: c, Vector: vec})
		if (i+1)%100 == 0 {
			slog.Debug("embedding chunks", "done", i+1, "total", len(chunks))
		}
	}

	dim := m.embedder.Dimension()
	if dim == 0 && len(entries) > 0 {
		dim = len(entries[0].Vector)
	}
	if dim == 0 {
		return Status{}, fmt.Errorf("%w: %s yielded no chunks and embedder dimension is unknown", domain.ErrIngestion, doc.Path)
	}

	if err := m.store.Init(ctx, dim); err != nil {
		return Status{}, fmt.Errorf("%w: init store: %w", domain.ErrIngestion, err)
	}
	if err := m.store.Upsert(ctx, entries); err != nil {
		return Status{}, fmt.Errorf("%w: store entries: %w", domain.ErrIngestion, err)
	}
	if err := m.store.Flush(ctx); err != nil {
		return Status{}, fmt.Errorf("%w: flush store: %w", domain.ErrIngestion, err)
	}

	if c, ok := m.embedder.(embedding.Corpus); ok {
		if err := c.Save(m.dir); err != nil {
			return Status{}, fmt.Errorf("%w: save %s state: %w", domain.ErrIngestion, m.embedder.Name(), err)
		}
	}

	manifest := m.fingerprint(doc)
	manifest.Dimension = dim
	manifest.ChunkCount = len(entries)
	manifest.Store = m.store.Name()
	manifest.CreatedAt = time.Now().UTC()
	if err := WriteManifest(m.dir, &manifest); err != nil {
		return Status{}, fmt.Errorf("%w: write manifest: %w", domain.ErrIngestion, err)
	}

	span.SetAttributes(attribute.Int("chunks", len(entries)))
	slog.Info("index built", "dir", m.dir, "store", m.store.Name(), "chunks", len(entries),
		"dimension", dim, "elapsed", time.Since(start).Round(time.Millisecond))
	return Status{Built: true, Chunks: len(entries), Manifest: manifest}, nil
}

func (m *Manager) fingerprint(doc domain.Document) Manifest {
	return Manifest{
		DocumentPath: doc.Path,
		DocumentHash: document.ContentHash(doc),
		Embedder:     m.embedder.Name(),
		Chunker:      m.chunker.Name(),
	}
}
