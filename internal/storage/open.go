package storage

import (
	"context"
	"fmt"

	"oceanbot/internal/storage/file"
	"oceanbot/internal/storage/memory"
	"oceanbot/internal/storage/postgres"
	"oceanbot/internal/storage/sqlite"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Options selects and configures a DocumentStore backend.
type Options struct {
	Backend    string
	PGDSN      string
	SQLitePath string
	Dir        string
}

// Open builds the configured backend and wraps it in a Store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	var (
		docs DocumentStore
		err  error
	)
	switch opts.Backend {
	case BackendFile, "":
		docs, err = file.Open(opts.Dir)
	case BackendMemory:
		docs = memory.New()
	case BackendPostgres:
		var pg *postgres.Store
		pg, err = postgres.NewStore(ctx, opts.PGDSN)
		if err == nil {
			if err = pg.EnsureSchema(ctx); err != nil {
				_ = pg.Close()
			}
		}
		docs = pg
	case BackendSQLite:
		docs, err = sqlite.Open(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Backend, err)
	}
	return New(docs), nil
}
