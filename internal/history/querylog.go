package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// MaxQueryLogEntries caps the query log; the oldest entry is evicted first.
	MaxQueryLogEntries = 100

	// PreviewLength is the number of response characters kept per entry.
	PreviewLength = 200

	// queryLogFileName is the log file inside the history directory.
	queryLogFileName = "queries.json"
)

// QueryEntry is one answered query.
type QueryEntry struct {
	Query     string    `json:"query"`
	Preview   string    `json:"preview"`
	Sources   []string  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryLog records answered queries with FIFO eviction.
type QueryLog struct {
	mu      sync.Mutex
	path    string
	entries []QueryEntry
}

// LoadQueryLog reads the query log from dir. A missing file yields an
// empty log; a corrupt file is discarded with a warning.
func LoadQueryLog(dir string) (*QueryLog, error) {
	l := &QueryLog{path: filepath.Join(dir, queryLogFileName)}

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read query log: %w", err)
	}

	if err := json.Unmarshal(data, &l.entries); err != nil {
		slog.Warn("query log is corrupt, starting fresh",
			slog.String("path", l.path),
			slog.String("error", err.Error()))
		l.entries = nil
	}
	return l, nil
}

// Record appends an entry, truncating the response to PreviewLength runes
// and evicting the oldest entry past MaxQueryLogEntries, then persists.
func (l *QueryLog) Record(query, response string, sources []string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, QueryEntry{
		Query:     query,
		Preview:   truncate(response, PreviewLength),
		Sources:   sources,
		Timestamp: now,
	})
	if len(l.entries) > MaxQueryLogEntries {
		l.entries = l.entries[len(l.entries)-MaxQueryLogEntries:]
	}
	return l.save()
}

// Len returns the number of stored entries.
func (l *QueryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (l *QueryLog) Recent(limit int) []QueryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.entries)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]QueryEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Search returns entries whose query or preview contains the keyword,
// case-insensitively, newest first.
func (l *QueryLog) Search(keyword string) []QueryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	needle := strings.ToLower(keyword)
	var out []QueryEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if strings.Contains(strings.ToLower(e.Query), needle) ||
			strings.Contains(strings.ToLower(e.Preview), needle) {
			out = append(out, e)
		}
	}
	return out
}

func (l *QueryLog) save() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal query log: %w", err)
	}
	return atomicWrite(l.path, data)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
