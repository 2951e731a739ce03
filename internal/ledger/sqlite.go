package ledger

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLitePersistence mirrors the engine's keyspace into a single kv table.
// One writer at a time; the engine serializes through the mutex because
// SQLite handles concurrent writers poorly.
type SQLitePersistence struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLitePersistence opens (or creates) the database file and ensures
// the kv table exists.
func NewSQLitePersistence(path string) (*SQLitePersistence, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to ledger database: %w", err)
	}

	createKV := `
	CREATE TABLE IF NOT EXISTS kv (
		"key"        TEXT PRIMARY KEY,
		"value"      BLOB NOT NULL,
		"updated_at" TEXT NOT NULL
	);`
	if _, err := db.Exec(createKV); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	return &SQLitePersistence{db: db}, nil
}

// SaveKey upserts a single key's bytes.
func (p *SQLitePersistence) SaveKey(key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.db.Exec(
		`INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LoadAll returns the full keyspace found on disk.
func (p *SQLitePersistence) LoadAll() (map[string][]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rows, err := p.db.Query(`SELECT key, value FROM kv`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	data := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		data[key] = value
	}
	return data, rows.Err()
}

// Close releases the database handle.
func (p *SQLitePersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.db.Close()
}
