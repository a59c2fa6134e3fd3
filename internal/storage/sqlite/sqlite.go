// Package sqlite keeps documents in an embedded SQLite database. Writes take
// a file lock so several processes can share one database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

const (
	DefaultPath = "data/oceanbot.db"
	lockTimeout = 5 * time.Second
)

type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"CREATE TABLE IF NOT EXISTS documents (path TEXT PRIMARY KEY, body BLOB NOT NULL, updated_at INTEGER NOT NULL);",
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(path + ".lock")}, nil
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, "SELECT body FROM documents WHERE path = ?", path).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlite read: %w", err)
	}
	return body, true, nil
}

func (s *Store) Put(ctx context.Context, path string, doc []byte) error {
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err == nil && !locked {
		err = fmt.Errorf("timeout acquiring lock")
	}
	if err != nil {
		return fmt.Errorf("lock sqlite store: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (path, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			body=excluded.body,
			updated_at=excluded.updated_at
	`, path, doc, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("sqlite write: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
