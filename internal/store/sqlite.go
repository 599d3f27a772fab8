package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// ChunkStore persists chunk metadata in SQLite.
// WAL mode allows a watch process and a chat session to share the database.
type ChunkStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// NewChunkStore opens (or creates) the chunk database at path.
// An empty path creates an in-memory store for testing.
func NewChunkStore(path string) (*ChunkStore, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer prevents lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores most DSN params, pragmas must be statements.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &ChunkStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *ChunkStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id           TEXT PRIMARY KEY,
		file_path    TEXT NOT NULL,
		content      TEXT NOT NULL,
		chunk_index  INTEGER NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset   INTEGER NOT NULL,
		start_line   INTEGER NOT NULL,
		end_line     INTEGER NOT NULL,
		language     TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts or replaces chunk records in a single transaction.
func (s *ChunkStore) Upsert(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("chunk store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks
			(id, file_path, content, chunk_index, start_offset, end_offset, start_line, end_line, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.FilePath, r.Content, r.ChunkIndex,
			r.StartOffset, r.EndOffset, r.StartLine, r.EndLine, r.Language); err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// GetByIDs returns records for the given IDs, preserving the input order.
// Missing IDs are skipped.
func (s *ChunkStore) GetByIDs(ctx context.Context, ids []string) ([]ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	byID := make(map[string]ChunkRecord, len(ids))
	stmt, err := s.db.PrepareContext(ctx, `
		SELECT id, file_path, content, chunk_index, start_offset, end_offset, start_line, end_line, language
		FROM chunks WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, id := range ids {
		var r ChunkRecord
		err := stmt.QueryRowContext(ctx, id).Scan(
			&r.ID, &r.FilePath, &r.Content, &r.ChunkIndex,
			&r.StartOffset, &r.EndOffset, &r.StartLine, &r.EndLine, &r.Language)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query chunk %s: %w", id, err)
		}
		byID[id] = r
	}

	records := make([]ChunkRecord, 0, len(byID))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			records = append(records, r)
		}
	}
	return records, nil
}

// IDsByPath returns the chunk IDs stored for a file.
func (s *ChunkStore) IDsByPath(ctx context.Context, filePath string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM chunks WHERE file_path = ? ORDER BY chunk_index`, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks for %s: %w", filePath, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteByPath removes all chunks for a file and returns their IDs.
func (s *ChunkStore) DeleteByPath(ctx context.Context, filePath string) ([]string, error) {
	ids, err := s.IDsByPath(ctx, filePath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE file_path = ?`, filePath); err != nil {
		return nil, fmt.Errorf("failed to delete chunks for %s: %w", filePath, err)
	}
	return ids, nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("chunk store is closed")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Paths returns the distinct indexed file paths.
func (s *ChunkStore) Paths(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT file_path FROM chunks ORDER BY file_path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Close closes the database.
func (s *ChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
