// Package local implements a flat on-disk vector index: vectors live in a
// gob file next to a SQLite database holding chunk text and metadata.
package local

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

const (
	VectorsFile = "vectors.gob"
	ChunksFile  = "chunks.db"
	metricDot   = "dot_product"
)

// vectorFile is the gob payload; IDs[i] owns Vectors[i].
type vectorFile struct {
	Metric    string
	Dimension int
	IDs       []string
	Vectors   [][]float32
}

type chunkRow struct {
	ID         string `db:"id"`
	DocumentID string `db:"document_id"`
	Idx        int    `db:"idx"`
	Text       string `db:"text"`
	CharOffset int    `db:"char_offset"`
	Source     string `db:"source"`
}

// Storage is a brute-force dot-product index persisted under dir.
type Storage struct {
	mu        sync.RWMutex
	dir       string
	db        *sqlx.DB
	dimension int
	entries   []domain.IndexEntry
	byID      map[string]int
}

func NewStorage(dir string) *Storage {
	return &Storage{dir: dir, byID: make(map[string]int)}
}

func (s *Storage) Name() string { return "local" }

func (s *Storage) vectorsPath() string { return filepath.Join(s.dir, VectorsFile) }
func (s *Storage) chunksPath() string  { return filepath.Join(s.dir, ChunksFile) }

// Init discards any existing index files and opens an empty chunk store.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if err := os.Remove(s.vectorsPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := s.openLocked(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("reset chunks: %w", err)
	}
	s.dimension = dimension
	s.entries = nil
	s.byID = make(map[string]int)
	return nil
}

// Load reads a persisted index. Both files must exist.
func (s *Storage) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range []string{s.vectorsPath(), s.chunksPath()} {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return vectorstore.ErrNotPersisted
		}
	}

	f, err := os.Open(s.vectorsPath())
	if err != nil {
		return err
	}
	defer f.Close()
	var vf vectorFile
	if err := gob.NewDecoder(f).Decode(&vf); err != nil {
		return fmt.Errorf("decode %s: %w", VectorsFile, err)
	}
	if len(vf.IDs) != len(vf.Vectors) {
		return fmt.Errorf("%s: %d ids for %d vectors", VectorsFile, len(vf.IDs), len(vf.Vectors))
	}

	if err := s.openLocked(ctx); err != nil {
		return err
	}
	var rows []chunkRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, document_id, idx, text, char_offset, source FROM chunks`); err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	chunks := make(map[string]domain.Chunk, len(rows))
	for _, r := range rows {
		chunks[r.ID] = r.chunk()
	}

	entries := make([]domain.IndexEntry, 0, len(vf.IDs))
	byID := make(map[string]int, len(vf.IDs))
	for i, id := range vf.IDs {
		c, ok := chunks[id]
		if !ok {
			return fmt.Errorf("chunk %s missing from %s", id, ChunksFile)
		}
		if len(vf.Vectors[i]) != vf.Dimension {
			return fmt.Errorf("vector %s has dimension %d, index says %d", id, len(vf.Vectors[i]), vf.Dimension)
		}
		byID[id] = len(entries)
		entries = append(entries, domain.IndexEntry{Chunk: c, Vector: vf.Vectors[i]})
	}
	s.dimension = vf.Dimension
	s.entries = entries
	s.byID = byID
	slog.Debug("local index loaded", "dir", s.dir, "entries", len(entries), "dimension", vf.Dimension)
	return nil
}

func (s *Storage) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return errors.New("local store not initialised")
	}
	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, e := range entries {
		_, err := tx.NamedExecContext(ctx, `INSERT OR REPLACE INTO chunks (id, document_id, idx, text, char_offset, source)
			VALUES (:id, :document_id, :idx, :text, :char_offset, :source)`, rowFor(e.Chunk))
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", e.Chunk.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, e := range entries {
		if i, ok := s.byID[e.Chunk.ID]; ok {
			s.entries[i] = e
			continue
		}
		s.byID[e.Chunk.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) > 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 5
	}
	return vectorstore.TopK(s.entries, vector, topK), nil
}

func (s *Storage) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Flush writes the vector file atomically. Its presence marks the index as
// complete.
func (s *Storage) Flush(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vf := vectorFile{
		Metric:    metricDot,
		Dimension: s.dimension,
		IDs:       make([]string, len(s.entries)),
		Vectors:   make([][]float32, len(s.entries)),
	}
	for i, e := range s.entries {
		vf.IDs[i] = e.Chunk.ID
		vf.Vectors[i] = e.Vector
	}

	tmp := s.vectorsPath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(vf); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.vectorsPath())
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	s.entries = nil
	s.byID = make(map[string]int)
	for _, p := range []string{s.vectorsPath(), s.chunksPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Storage) closeLocked() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Storage) openLocked(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := sqlx.Open("sqlite", s.chunksPath()+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			text TEXT NOT NULL,
			char_offset INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, idx)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return fmt.Errorf("migrate: %w", err)
		}
	}
	s.db = db
	return nil
}

func rowFor(c domain.Chunk) chunkRow {
	return chunkRow{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		Idx:        c.Index,
		Text:       c.Text,
		CharOffset: c.Offset,
		Source:     c.Source,
	}
}

func (r chunkRow) chunk() domain.Chunk {
	return domain.Chunk{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		Index:      r.Idx,
		Text:       r.Text,
		Offset:     r.CharOffset,
		Source:     r.Source,
	}
}
