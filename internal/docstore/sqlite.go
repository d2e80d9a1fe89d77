package docstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite is a document store persisted to a local SQLite file. It serves
// the "local" backend and backs the document server.
type SQLite struct {
	db  *sql.DB
	hub *Hub
	now func() time.Time

	// Serializes write+publish so subscribers observe snapshots in
	// commit order.
	mu sync.Mutex
}

// OpenSQLite opens a database file and runs migrations
func OpenSQLite(dbPath string) (*SQLite, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLite{
		db:  sqlDB,
		hub: NewHub(),
		now: time.Now,
	}, nil
}

// migrate runs database migrations using embedded SQL files
func migrate(db *sql.DB) error {
	// Silence goose logging (it corrupts TUI output)
	goose.SetLogger(log.New(io.Discard, "", 0))
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

// transaction executes a function within a transaction
func (s *SQLite) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Subscribe implements Client
func (s *SQLite) Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) func() {
	if !ValidCollection(collection) {
		if onError != nil {
			onError(ErrInvalidPath)
		}
		return func() {}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(ctx, collection)
	if err != nil {
		if onError != nil {
			onError(fmt.Errorf("failed to load %s: %w", collection, err))
		}
		return func() {}
	}

	w := s.hub.Register(collection, onSnapshot)
	w.offer(docs)
	return stopOnDone(ctx, func() { s.hub.Unregister(collection, w) })
}

// Write implements Client
func (s *SQLite) Write(ctx context.Context, collection, id string, record map[string]any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	err := s.transaction(ctx, func(tx *sql.Tx) error {
		var existing string
		data := map[string]any{}
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM documents WHERE collection = ? AND id = ?`,
			collection, id,
		).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return err
		default:
			if err := json.Unmarshal([]byte(existing), &data); err != nil {
				return fmt.Errorf("corrupt document %s/%s: %w", collection, id, err)
			}
		}

		encoded, err := json.Marshal(merge(data, record))
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (collection, id, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (collection, id) DO UPDATE
			SET data = excluded.data, updated_at = excluded.updated_at
		`, collection, id, string(encoded), now, now)
		return err
	})
	if err != nil {
		return err
	}

	return s.publishLocked(ctx, collection)
}

// Delete implements Client
func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	return s.publishLocked(ctx, collection)
}

// List implements Client
func (s *SQLite) List(ctx context.Context, collection string) ([]Document, error) {
	if !ValidCollection(collection) {
		return nil, ErrInvalidPath
	}
	return s.load(ctx, collection)
}

func (s *SQLite) publishLocked(ctx context.Context, collection string) error {
	if s.hub.Watching(collection) == 0 {
		return nil
	}
	docs, err := s.load(ctx, collection)
	if err != nil {
		return err
	}
	s.hub.Publish(collection, docs)
	return nil
}

func (s *SQLite) load(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE collection = ?
		ORDER BY created_at, rowid
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var d Document
		var data string
		if err := rows.Scan(&d.ID, &data, &d.CreateTime, &d.UpdateTime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &d.Data); err != nil {
			// Unreadable documents are skipped rather than failing the snapshot
			continue
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

var _ Client = (*SQLite)(nil)
