package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clicrerrors "github.com/jagdteam/clicr/internal/errors"
)

func TestLock_AcquireRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	lock := NewLock(dir)

	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Release())

	_, err := os.Stat(lock.Path())
	assert.NoError(t, err, "lock file should exist after use")
}

func TestLock_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	lock := NewLock(dir)

	require.NoError(t, lock.Acquire())
	defer lock.Release()

	assert.DirExists(t, dir)
}

func TestLock_HeldLockRejectsSecondAcquire(t *testing.T) {
	dir := t.TempDir()

	first := NewLock(dir)
	require.NoError(t, first.Acquire())
	defer first.Release()

	second := NewLock(dir)
	err := second.Acquire()
	require.Error(t, err)
	assert.Equal(t, clicrerrors.ErrCodeIndexLocked, clicrerrors.GetCode(err))
}

func TestLock_ReacquireAfterRelease(t *testing.T) {
	dir := t.TempDir()

	first := NewLock(dir)
	require.NoError(t, first.Acquire())
	require.NoError(t, first.Release())

	second := NewLock(dir)
	require.NoError(t, second.Acquire())
	assert.NoError(t, second.Release())
}

func TestLock_ReleaseWhenNotHeld(t *testing.T) {
	lock := NewLock(t.TempDir())
	assert.NoError(t, lock.Release())
}
