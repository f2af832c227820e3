package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	scope      TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (scope, key)
);
`

// SQLiteStore is a Store backed by a single SQLite table.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the SQLite database at path and applies the
// schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open(DriverName, path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, scope, key string) ([]byte, bool, error) {
	var value []byte
	err := s.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE scope = ? AND key = ?`, scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %s/%s: %w", scope, key, err)
	}
	return value, true, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, scope, key string, value []byte) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO kv (scope, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, scope, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cache: set %s/%s: %w", scope, key, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, scope, key string) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM kv WHERE scope = ? AND key = ?`, scope, key); err != nil {
		return fmt.Errorf("cache: delete %s/%s: %w", scope, key, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
