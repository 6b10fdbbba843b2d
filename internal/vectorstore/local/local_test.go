package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

func entries() []domain.IndexEntry {
	return []domain.IndexEntry{
		{Chunk: domain.Chunk{ID: "d:0", DocumentID: "d", Index: 0, Text: "The sky is blue.", Source: "a.txt"}, Vector: []float32{1, 0}},
		{Chunk: domain.Chunk{ID: "d:1", DocumentID: "d", Index: 1, Text: "Bananas are yellow.", Offset: 17, Source: "a.txt"}, Vector: []float32{0, 1}},
	}
}

func TestStorage_LoadBeforeBuild(t *testing.T) {
	s := NewStorage(t.TempDir())
	defer s.Close()
	assert.True(t, errors.Is(s.Load(context.Background()), vectorstore.ErrNotPersisted))
}

func TestStorage_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewStorage(dir)
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, entries()))
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Close())

	reopened := NewStorage(dir)
	defer reopened.Close()
	require.NoError(t, reopened.Load(ctx))
	assert.Equal(t, 2, reopened.Dimension())

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := reopened.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, entries()[1].Chunk, res[0].Chunk)
}

func TestStorage_UnflushedIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewStorage(dir)
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, entries()))
	require.NoError(t, s.Close())

	assert.True(t, errors.Is(NewStorage(dir).Load(ctx), vectorstore.ErrNotPersisted))
}

func TestStorage_CorruptVectorFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, VectorsFile), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ChunksFile), nil, 0o644))

	s := NewStorage(dir)
	defer s.Close()
	err := s.Load(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, vectorstore.ErrNotPersisted))
}

func TestStorage_ClearRemovesFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewStorage(dir)
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, entries()))
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Clear(ctx))

	_, err := os.Stat(filepath.Join(dir, VectorsFile))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Join(dir, ChunksFile))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
