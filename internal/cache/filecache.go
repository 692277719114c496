package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// Filecache implements the Cache interface using a SQLite database.
type Filecache struct {
	db *sql.DB
}

// NewFilecache opens (or creates) the SQLite database at the provided path,
// enables WAL mode and initializes the schema. An empty path or ":memory:"
// keeps the database in memory.
func NewFilecache(dbPath string) (*Filecache, error) {
	memory := dbPath == "" || dbPath == ":memory:"
	if memory {
		dbPath = ":memory:"
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: opens a database of its own.
	db.SetMaxOpenConns(1)

	if !memory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Filecache{db: db}, nil
}

func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Results are cheap to recompute: older schemas are dropped.
	if _, err := tx.Exec(`DROP TABLE IF EXISTS results`); err != nil {
		return fmt.Errorf("failed to drop old results: %w", err)
	}
	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}

// Get returns the value for key and marks it used.
func (fc *Filecache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := fc.db.QueryRowContext(ctx, `SELECT value FROM results WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	if _, err := fc.db.ExecContext(ctx,
		`UPDATE results SET last_used = ? WHERE key = ?`, time.Now().Unix(), key,
	); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put inserts or replaces the value for key.
func (fc *Filecache) Put(ctx context.Context, key string, value []byte) error {
	_, err := fc.db.ExecContext(ctx, `
        INSERT INTO results (key, value, last_used) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, last_used = excluded.last_used
    `, key, value, time.Now().Unix())
	return err
}

// Prune deletes entries last used before the given time.
func (fc *Filecache) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := fc.db.ExecContext(ctx, `DELETE FROM results WHERE last_used < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Len returns the number of stored entries.
func (fc *Filecache) Len(ctx context.Context) (int, error) {
	var n int
	err := fc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&n)
	return n, err
}

func (fc *Filecache) Close() error {
	return fc.db.Close()
}
