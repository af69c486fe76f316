package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hupe1980/dialogmesh/core"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS documents (
	key  TEXT PRIMARY KEY,
	etag TEXT NOT NULL,
	data TEXT NOT NULL
)`

// SQLiteStorage persists documents in a single SQLite table. It follows the
// same eTag semantics as MemoryStorage and performs each Write in one
// transaction.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a private in-process database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStorage) Close() error { return s.db.Close() }

// Read returns the stored documents for keys that exist.
func (s *SQLiteStorage) Read(ctx context.Context, keys ...string) (map[string]core.Document, error) {
	result := make(map[string]core.Document, len(keys))

	for _, key := range keys {
		var etag, data string
		err := s.db.QueryRowContext(ctx, `SELECT etag, data FROM documents WHERE key = ?`, key).Scan(&etag, &data)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		doc, err := decodeDocument([]byte(data), etag)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		result[key] = doc
	}

	return result, nil
}

// Write upserts the provided documents atomically.
func (s *SQLiteStorage) Write(ctx context.Context, changes map[string]core.Document) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for key, doc := range changes {
		var current string
		qerr := tx.QueryRowContext(ctx, `SELECT etag FROM documents WHERE key = ?`, key).Scan(&current)
		if qerr != nil && !errors.Is(qerr, sql.ErrNoRows) {
			return fmt.Errorf("read etag %s: %w", key, qerr)
		}
		if err = checkETag(key, doc, current); err != nil {
			return err
		}

		data, encErr := encodeDocument(doc)
		if encErr != nil {
			return fmt.Errorf("write %s: %w", key, encErr)
		}

		if _, err = tx.ExecContext(ctx,
			`INSERT INTO documents (key, etag, data) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET etag = excluded.etag, data = excluded.data`,
			key, core.NewID(), string(data)); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Delete removes the given keys. Unknown keys are ignored.
func (s *SQLiteStorage) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}
