package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

// SQLStore persists entries in a relational table. It serves as the
// authoritative tier when configured with the postgres or sqlite driver.
type SQLStore struct {
	db *sql.DB
}

// SQLConfig holds relational tier configuration.
type SQLConfig struct {
	Driver          string // postgres or sqlite
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS faq_entries (
		position INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer   TEXT NOT NULL
	)
`

// NewSQLStore opens the database, applies pool settings and ensures the
// schema exists.
func NewSQLStore(cfg SQLConfig) (*SQLStore, error) {
	driver := cfg.Driver
	if driver == "sqlite" {
		driver = "sqlite3"
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Load reads all entries in insertion order. An empty table is a valid empty
// knowledge base.
func (s *SQLStore) Load(ctx context.Context) (EntrySet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question, answer FROM faq_entries ORDER BY position`)
	if err != nil {
		return EntrySet{}, fmt.Errorf("%w: query entries: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Question, &e.Answer); err != nil {
			return EntrySet{}, fmt.Errorf("%w: scan entry: %v", ErrDataCorrupt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return EntrySet{}, fmt.Errorf("%w: iterate entries: %v", ErrStoreUnavailable, err)
	}

	return NewEntrySet(entries), nil
}

// ReplaceAll runs delete-then-insert inside one transaction. On any row
// failure the transaction rolls back and no partial state is committed.
func (s *SQLStore) ReplaceAll(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrWriteFailed, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM faq_entries`); err != nil {
		return fmt.Errorf("%w: clear table: %v", ErrWriteFailed, err)
	}

	for i, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO faq_entries (position, question, answer) VALUES ($1, $2, $3)`,
			i+1, e.Question, e.Answer,
		); err != nil {
			return fmt.Errorf("%w: insert entry %d: %v", ErrWriteFailed, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrWriteFailed, err)
	}

	return nil
}

// AppendOne inserts a single entry after the current last position.
func (s *SQLStore) AppendOne(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO faq_entries (position, question, answer)
		 SELECT COALESCE(MAX(position), 0) + 1, $1, $2 FROM faq_entries`,
		entry.Question, entry.Answer,
	); err != nil {
		return fmt.Errorf("%w: insert entry: %v", ErrWriteFailed, err)
	}

	return nil
}

// Invalidate is a no-op: the table is the durable copy, not a cache.
func (s *SQLStore) Invalidate(ctx context.Context) error {
	return nil
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
