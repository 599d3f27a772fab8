package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	clicrerrors "github.com/jagdteam/clicr/internal/errors"
)

// lockFileName lives inside the data directory.
const lockFileName = ".ingest.lock"

// Lock is a cross-process lock on the data directory so two ingest runs
// (or an ingest and a watch loop from another terminal) never write the
// index concurrently.
type Lock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewLock creates a lock for the given data directory.
func NewLock(dataDir string) *Lock {
	path := filepath.Join(dataDir, lockFileName)
	return &Lock{
		path:  path,
		flock: flock.New(path),
	}
}

// Acquire takes the lock without blocking. A held lock returns a coded
// error telling the user who to look for.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return clicrerrors.New(clicrerrors.ErrCodeIndexLocked, "another clicr process is writing the index").
			WithSuggestion("wait for the other ingest or watch process to finish")
	}

	l.locked = true
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *Lock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}
