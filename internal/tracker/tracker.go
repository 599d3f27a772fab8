// Package tracker persists per-file content digests for incremental indexing.
//
// The state is a JSON map of relative path to SHA-256 hex digest, written
// atomically so a crash never leaves a partially written file behind.
package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// StateFileName is the conventional name for the hash state file
// inside the data directory.
const StateFileName = "hashes.json"

// Tracker tracks file content digests between runs.
type Tracker struct {
	path string

	mu     sync.RWMutex
	hashes map[string]string
}

// Diff describes the change set between the stored state and a current snapshot.
type Diff struct {
	Added   []string
	Changed []string
	Removed []string
}

// Empty reports whether the diff contains no changes.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// Load reads tracker state from path.
// A missing file yields an empty tracker. A corrupt file is discarded with a
// warning so the next run re-indexes from scratch instead of failing.
func Load(path string) (*Tracker, error) {
	t := &Tracker{
		path:   path,
		hashes: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hash state %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &t.hashes); err != nil {
		slog.Warn("hash state is corrupt, starting fresh",
			slog.String("path", path),
			slog.String("error", err.Error()))
		t.hashes = make(map[string]string)
	}

	return t, nil
}

// HashBytes returns the SHA-256 hex digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the SHA-256 hex digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the stored digest for a path.
func (t *Tracker) Get(path string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	digest, ok := t.hashes[path]
	return digest, ok
}

// Set records the digest for a path.
func (t *Tracker) Set(path, digest string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hashes[path] = digest
}

// Delete removes a path from the state.
func (t *Tracker) Delete(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.hashes, path)
}

// Len returns the number of tracked files.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.hashes)
}

// Paths returns the tracked paths in sorted order.
func (t *Tracker) Paths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	paths := make([]string, 0, len(t.hashes))
	for p := range t.hashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// DiffAgainst compares the stored state with a current path -> digest snapshot.
func (t *Tracker) DiffAgainst(current map[string]string) Diff {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var d Diff
	for path, digest := range current {
		stored, ok := t.hashes[path]
		switch {
		case !ok:
			d.Added = append(d.Added, path)
		case stored != digest:
			d.Changed = append(d.Changed, path)
		}
	}
	for path := range t.hashes {
		if _, ok := current[path]; !ok {
			d.Removed = append(d.Removed, path)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Changed)
	sort.Strings(d.Removed)
	return d
}

// Save writes the state atomically: marshal, write to a temp file in the
// same directory, then rename over the target.
func (t *Tracker) Save() error {
	t.mu.RLock()
	data, err := json.MarshalIndent(t.hashes, "", "  ")
	t.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal hash state: %w", err)
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".hashes-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write hash state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, t.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace hash state: %w", err)
	}

	return nil
}
