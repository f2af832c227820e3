package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileStore is a Store keeping one file per (scope, key) under a directory.
// Writes replace files atomically.
type FileStore struct {
	dir string
}

// OpenFileStore creates the directory if needed.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: mkdir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(scope, key string) string {
	return filepath.Join(s.dir, url.PathEscape(scope), url.PathEscape(key)+".bin")
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, scope, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(s.path(scope, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: read %s/%s: %w", scope, key, err)
	}
	return data, true, nil
}

// Set implements Store.
func (s *FileStore) Set(ctx context.Context, scope, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := s.path(scope, key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("cache: mkdir: %w", err)
	}
	if err := atomic.WriteFile(p, bytes.NewReader(value)); err != nil {
		return fmt.Errorf("cache: write %s/%s: %w", scope, key, err)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, scope, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(scope, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cache: delete %s/%s: %w", scope, key, err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
