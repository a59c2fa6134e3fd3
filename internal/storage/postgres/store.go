// Package postgres keeps documents in a single Postgres table.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store provides Postgres persistence for documents.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the documents table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, bool, error) {
	if path == "" {
		return nil, false, fmt.Errorf("document path required")
	}
	var body []byte
	row := s.pool.QueryRow(ctx, `SELECT body::text FROM documents WHERE path=$1`, path)
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return body, true, nil
}

// Put upserts the whole document at path.
func (s *Store) Put(ctx context.Context, path string, doc []byte) error {
	if path == "" {
		return fmt.Errorf("document path required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (path, body, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (path) DO UPDATE
		SET body = EXCLUDED.body, updated_at = now()
	`, path, string(doc))
	return err
}
