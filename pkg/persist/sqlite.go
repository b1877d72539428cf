package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kokoro-labs/animus/pkg/core"
)

// SQLiteStore keeps every document as a row in a single documents table.
// Writes go through a transaction, so a document is either fully replaced or
// untouched.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, core.NewAgentError("NewSQLiteStore",
				fmt.Errorf("create %s: %v: %w", dir, err, core.ErrPersistence))
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, core.NewAgentError("NewSQLiteStore",
			fmt.Errorf("%v: %w", err, core.ErrPersistence))
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.NewAgentError("NewSQLiteStore",
			fmt.Errorf("%v: %w", err, core.ErrPersistence))
	}

	s := &SQLiteStore{db: db}
	if err := s.initTables(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS documents (
			name TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return core.NewAgentError("initTables",
			fmt.Errorf("%v: %w", err, core.ErrPersistence))
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, name string, v any) error {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewAgentError("Load",
			fmt.Errorf("document %q: %w", name, core.ErrNotFound))
	}
	if err != nil {
		return core.NewAgentError("Load",
			fmt.Errorf("document %q: %v: %w", name, err, core.ErrPersistence))
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return core.NewAgentError("Load",
			fmt.Errorf("document %q: %v: %w", name, err, core.ErrPersistence))
	}
	return nil
}

// Save implements Store. A failed write is retried once.
func (s *SQLiteStore) Save(ctx context.Context, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return core.NewAgentError("Save",
			fmt.Errorf("document %q: %v: %w", name, err, core.ErrPersistence))
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if lastErr = s.upsert(ctx, name, string(body)); lastErr == nil {
			return nil
		}
	}
	return core.NewAgentError("Save",
		fmt.Errorf("document %q: %v: %w", name, lastErr, core.ErrPersistence))
}

func (s *SQLiteStore) upsert(ctx context.Context, name, body string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, name, body, time.Now().UTC())
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
