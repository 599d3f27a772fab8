package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChunkStore(t *testing.T) *ChunkStore {
	t.Helper()
	s, err := NewChunkStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(id, path string, index int) ChunkRecord {
	return ChunkRecord{
		ID:          id,
		FilePath:    path,
		Content:     fmt.Sprintf("content of %s", id),
		ChunkIndex:  index,
		StartOffset: index * 450,
		EndOffset:   index*450 + 500,
		StartLine:   1,
		EndLine:     20,
		Language:    "go",
	}
}

func TestChunkStore_UpsertAndGet(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	records := []ChunkRecord{
		testRecord("c1", "main.go", 0),
		testRecord("c2", "main.go", 1),
	}
	require.NoError(t, s.Upsert(ctx, records))

	got, err := s.GetByIDs(ctx, []string{"c2", "c1"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Input order is preserved.
	assert.Equal(t, "c2", got[0].ID)
	assert.Equal(t, "c1", got[1].ID)
	assert.Equal(t, "main.go", got[0].FilePath)
	assert.Equal(t, 450, got[0].StartOffset)
	assert.Equal(t, "go", got[0].Language)
}

func TestChunkStore_GetSkipsMissingIDs(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []ChunkRecord{testRecord("c1", "a.go", 0)}))

	got, err := s.GetByIDs(ctx, []string{"c1", "nope"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
}

func TestChunkStore_UpsertReplaces(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	r := testRecord("c1", "a.go", 0)
	require.NoError(t, s.Upsert(ctx, []ChunkRecord{r}))

	r.Content = "updated"
	require.NoError(t, s.Upsert(ctx, []ChunkRecord{r}))

	got, err := s.GetByIDs(ctx, []string{"c1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "updated", got[0].Content)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunkStore_DeleteByPath(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []ChunkRecord{
		testRecord("c1", "a.go", 0),
		testRecord("c2", "a.go", 1),
		testRecord("c3", "b.go", 0),
	}))

	ids, err := s.DeleteByPath(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunkStore_DeleteByPathUnknown(t *testing.T) {
	s := newTestChunkStore(t)

	ids, err := s.DeleteByPath(context.Background(), "ghost.go")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestChunkStore_Paths(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []ChunkRecord{
		testRecord("c1", "b.go", 0),
		testRecord("c2", "a.go", 0),
		testRecord("c3", "a.go", 1),
	}))

	paths, err := s.Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go"}, paths)
}

func TestChunkStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	ctx := context.Background()

	s, err := NewChunkStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, []ChunkRecord{testRecord("c1", "a.go", 0)}))
	require.NoError(t, s.Close())

	reopened, err := NewChunkStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunkStore_Closed(t *testing.T) {
	s, err := NewChunkStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Error(t, s.Upsert(context.Background(), []ChunkRecord{testRecord("c1", "a.go", 0)}))
	_, err = s.Count(context.Background())
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}
