// Package storage enumerates the content folders of a workspace.
package storage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/starford/pageindex/internal/models"
)

// DefaultFileTypes are the content file extensions indexed when none are
// configured.
var DefaultFileTypes = []string{"md", "markdown", "mdx"}

// FolderConfig is a content folder relative to the workspace root.
type FolderConfig struct {
	Title string
	Path  string
}

// Workspace walks the configured content folders. Folder listings are cached
// until ClearCached.
type Workspace struct {
	fs           afero.Fs
	root         string // absolute path to the workspace
	staticFolder string
	fileTypes    map[string]struct{}
	folders      []FolderConfig
	logger       *slog.Logger

	mu     sync.Mutex
	cached []models.Folder
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithStaticFolder sets the static assets folder, relative to the root.
func WithStaticFolder(folder string) Option {
	return func(w *Workspace) { w.staticFolder = folder }
}

// WithFileTypes sets the indexed file extensions, with or without a dot.
func WithFileTypes(types ...string) Option {
	return func(w *Workspace) {
		if len(types) == 0 {
			return
		}
		w.fileTypes = make(map[string]struct{}, len(types))
		for _, t := range types {
			w.fileTypes[strings.ToLower(strings.TrimPrefix(t, "."))] = struct{}{}
		}
	}
}

// WithFolders sets the content folders. Without folders the whole root is
// one folder.
func WithFolders(folders ...FolderConfig) Option {
	return func(w *Workspace) { w.folders = folders }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// NewWorkspace creates a Workspace rooted at root. The directory must exist.
func NewWorkspace(fsys afero.Fs, root string, opts ...Option) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := fsys.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	w := &Workspace{fs: fsys, root: abs, logger: slog.Default()}
	WithFileTypes(DefaultFileTypes...)(w)
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// StaticFolder returns the configured static assets folder.
func (w *Workspace) StaticFolder() string { return w.staticFolder }

// Fs returns the filesystem the workspace reads from.
func (w *Workspace) Fs() afero.Fs { return w.fs }

// IsEligible reports whether fileName has an indexed extension.
func (w *Workspace) IsEligible(fileName string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" {
		return false
	}
	_, ok := w.fileTypes[ext]
	return ok
}

// ClearCached drops the cached folder listing.
func (w *Workspace) ClearCached() {
	w.mu.Lock()
	w.cached = nil
	w.mu.Unlock()
}

// ListFolders returns every content folder with its files and their
// modification times. Missing folders are logged and skipped.
func (w *Workspace) ListFolders(ctx context.Context) ([]models.Folder, error) {
	w.mu.Lock()
	if w.cached != nil {
		out := w.cached
		w.mu.Unlock()
		return out, nil
	}
	w.mu.Unlock()

	configs := w.folders
	if len(configs) == 0 {
		configs = []FolderConfig{{Title: filepath.Base(w.root), Path: ""}}
	}

	out := make([]models.Folder, 0, len(configs))
	for _, cfg := range configs {
		dir, err := w.SafePath(cfg.Path)
		if err != nil {
			return nil, err
		}
		if ok, _ := afero.DirExists(w.fs, dir); !ok {
			w.logger.Warn("storage: content folder missing", slog.String("path", dir))
			continue
		}
		files, err := w.walk(ctx, dir)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Folder{Title: cfg.Title, Path: dir, Files: files})
	}

	w.mu.Lock()
	w.cached = out
	w.mu.Unlock()
	return out, nil
}

func (w *Workspace) walk(ctx context.Context, dir string) ([]models.FileInfo, error) {
	var files []models.FileInfo
	err := afero.Walk(w.fs, dir, func(p string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			if p != dir && skipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, models.FileInfo{
			FilePath:     p,
			FileName:     info.Name(),
			ModifiedTime: info.ModTime().UnixMilli(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: walk %s: %w", dir, err)
	}
	return files, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

// SafePath resolves a root-relative path and rejects any result that escapes
// the workspace (directory traversal). Absolute paths inside the root are
// accepted as is.
func (w *Workspace) SafePath(rel string) (string, error) {
	if rel == "" {
		return w.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	var joined string
	if filepath.IsAbs(cleaned) {
		joined = cleaned
	} else {
		joined = filepath.Join(w.root, cleaned)
	}
	if !w.Contains(joined) {
		return "", fmt.Errorf("storage: path escapes workspace root: %s", rel)
	}
	return joined, nil
}

// Contains reports whether p is the root or lies under it.
func (w *Workspace) Contains(p string) bool {
	p = filepath.Clean(p)
	return p == w.root || strings.HasPrefix(p, w.root+string(filepath.Separator))
}

// RelPath returns p relative to the root in slash form.
func (w *Workspace) RelPath(p string) string {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// NormalizePath converts Windows separators to slashes. Cache identity and
// relative paths are computed on normalized paths.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
