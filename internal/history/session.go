// Package history persists chat sessions and the query log under the
// user's history directory.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"
)

const (
	// indexFileName is the session index inside the history directory.
	indexFileName = "sessions.json"

	// sessionsDirName holds the per-session message files.
	sessionsDirName = "sessions"

	// maxSessionNameLength is the maximum allowed session name length.
	maxSessionNameLength = 64

	// sessionIDLayout formats timestamp-derived session IDs.
	sessionIDLayout = "20060102_150405"
)

// validSessionNamePattern matches alphanumeric, hyphen, and underscore.
var validSessionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionName validates a session name.
// Valid names contain only letters, numbers, hyphens, and underscores.
func ValidateSessionName(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if len(name) > maxSessionNameLength {
		return fmt.Errorf("session name too long (max %d chars)", maxSessionNameLength)
	}
	if !validSessionNamePattern.MatchString(name) {
		return fmt.Errorf("session name can only contain letters, numbers, hyphens, and underscores")
	}
	return nil
}

// Message is one turn in a chat session.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []string  `json:"sources,omitempty"`
}

// Session is a stored conversation. The ID derives from the creation
// time; the name is the user-facing label.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// SessionInfo is one entry in the session index.
type SessionInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// Store manages sessions on disk: an index file plus one JSON file per
// session. All writes are atomic temp+rename.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates a session store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the history directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, indexFileName)
}

func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.dir, sessionsDirName, id+".json")
}

// Create starts a new session. The ID derives from the current time,
// with a numeric suffix on collision. A given name is validated and
// must be unused; an empty name defaults to "Session <id>".
func (s *Store) Create(name string, now time.Time) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	if name != "" {
		if err := ValidateSessionName(name); err != nil {
			return nil, err
		}
		if _, exists := findByName(index, name); exists {
			return nil, fmt.Errorf("session %q already exists", name)
		}
	}

	id := timestampID(now, func(candidate string) bool {
		_, exists := index[candidate]
		return exists
	})
	if name == "" {
		name = "Session " + id
	}

	sess := &Session{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		Messages:  []Message{},
	}
	if err := s.saveSession(sess); err != nil {
		return nil, err
	}

	index[id] = SessionInfo{ID: id, Name: name, CreatedAt: now}
	if err := s.saveIndex(index); err != nil {
		return nil, err
	}
	return sess, nil
}

// findByName scans the index for a session with the given name.
func findByName(index map[string]SessionInfo, name string) (SessionInfo, bool) {
	for _, info := range index {
		if info.Name == name {
			return info, true
		}
	}
	return SessionInfo{}, false
}

// timestampID derives a session ID from t, appending _2, _3, ... until
// the ID is free.
func timestampID(t time.Time, taken func(string) bool) string {
	base := t.Format(sessionIDLayout)
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !taken(candidate) {
			return candidate
		}
	}
}

// Get loads a session by ID.
func (s *Store) Get(id string) (*Session, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("session %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %q: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session %q: %w", id, err)
	}
	return &sess, nil
}

// GetByName loads the session carrying the given name.
func (s *Store) GetByName(name string) (*Session, error) {
	s.mu.Lock()
	index, err := s.loadIndex()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	info, ok := findByName(index, name)
	if !ok {
		return nil, fmt.Errorf("session %q not found", name)
	}
	return s.Get(info.ID)
}

// Append adds a message to a session and persists it.
func (s *Store) Append(sess *Session, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.Messages = append(sess.Messages, msg)
	if err := s.saveSession(sess); err != nil {
		return err
	}

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	index[sess.ID] = SessionInfo{
		ID:           sess.ID,
		Name:         sess.Name,
		CreatedAt:    sess.CreatedAt,
		MessageCount: len(sess.Messages),
	}
	return s.saveIndex(index)
}

// List returns all sessions, newest first.
func (s *Store) List() ([]SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	infos := make([]SessionInfo, 0, len(index))
	for _, info := range index {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID > infos[j].ID
		}
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// Delete removes a session file and its index entry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	if _, exists := index[id]; !exists {
		return fmt.Errorf("session %q not found", id)
	}

	if err := os.Remove(s.sessionPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session %q: %w", id, err)
	}

	delete(index, id)
	return s.saveIndex(index)
}

func (s *Store) loadIndex() (map[string]SessionInfo, error) {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return make(map[string]SessionInfo), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session index: %w", err)
	}

	var index map[string]SessionInfo
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse session index: %w", err)
	}
	if index == nil {
		index = make(map[string]SessionInfo)
	}
	return index, nil
}

func (s *Store) saveIndex(index map[string]SessionInfo) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session index: %w", err)
	}
	return atomicWrite(s.indexPath(), data)
}

func (s *Store) saveSession(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return atomicWrite(s.sessionPath(sess.ID), data)
}

// atomicWrite writes data via a temp file and rename.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
