package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")

	tr, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Len())
}

func TestLoad_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	tr, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Len())
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")

	tr, err := Load(path)
	require.NoError(t, err)
	tr.Set("a.go", "digest-a")
	tr.Set("b/c.py", "digest-c")
	require.NoError(t, tr.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())

	digest, ok := reloaded.Get("a.go")
	require.True(t, ok)
	assert.Equal(t, "digest-a", digest)
	assert.Equal(t, []string{"a.go", "b/c.py"}, reloaded.Paths())
}

func TestSave_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state", "hashes.json")

	tr, err := Load(path)
	require.NoError(t, err)
	tr.Set("x.go", "d")
	require.NoError(t, tr.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "d", m["x.go"])
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hashes.json")

	tr, err := Load(path)
	require.NoError(t, err)
	tr.Set("a.go", "d")
	require.NoError(t, tr.Save())

	leftovers, err := filepath.Glob(filepath.Join(dir, ".hashes-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDelete(t *testing.T) {
	tr, err := Load(filepath.Join(t.TempDir(), "hashes.json"))
	require.NoError(t, err)

	tr.Set("a.go", "d")
	tr.Delete("a.go")

	_, ok := tr.Get("a.go")
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
}

func TestDiffAgainst(t *testing.T) {
	tr, err := Load(filepath.Join(t.TempDir(), "hashes.json"))
	require.NoError(t, err)

	tr.Set("unchanged.go", "same")
	tr.Set("changed.go", "old")
	tr.Set("removed.go", "gone")

	d := tr.DiffAgainst(map[string]string{
		"unchanged.go": "same",
		"changed.go":   "new",
		"added.go":     "fresh",
	})

	assert.Equal(t, []string{"added.go"}, d.Added)
	assert.Equal(t, []string{"changed.go"}, d.Changed)
	assert.Equal(t, []string{"removed.go"}, d.Removed)
	assert.False(t, d.Empty())
}

func TestDiffAgainst_NoChanges(t *testing.T) {
	tr, err := Load(filepath.Join(t.TempDir(), "hashes.json"))
	require.NoError(t, err)

	tr.Set("a.go", "d1")
	d := tr.DiffAgainst(map[string]string{"a.go": "d1"})
	assert.True(t, d.Empty())
}

func TestHashBytes_Deterministic(t *testing.T) {
	h1 := HashBytes([]byte("hello"))
	h2 := HashBytes([]byte("hello"))
	h3 := HashBytes([]byte("world"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestHashFile_MatchesHashBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	content := []byte("some file content\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	h, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashBytes(content), h)
}

func TestHashFile_Missing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
