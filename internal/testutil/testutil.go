// Package testutil provides shared test helpers for building content trees.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WriteTree writes files (relative path to content) under root on fs.
func WriteTree(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := afero.WriteFile(fs, p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// Touch sets the modification time of path to ms epoch milliseconds.
func Touch(t *testing.T, fs afero.Fs, path string, ms int64) {
	t.Helper()
	mt := time.UnixMilli(ms)
	if err := fs.Chtimes(path, mt, mt); err != nil {
		t.Fatal(err)
	}
}
